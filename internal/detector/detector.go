// Package detector 实现血糖尖峰、活动低谷的检测与两者的相关性匹配。
// 所有检测函数均为纯函数：不修改输入、不做 I/O，空输入返回空结果而非错误，
// 可以按用户/窗口并发调用而无需任何同步。
package detector

import (
	"math"
	"time"
)

// 默认阈值（行业常用值：60 分钟内上升 30 mg/dL；20 分钟内不足 100 步）
const (
	DefaultSpikeDeltaMgDl    = 30.0
	DefaultSpikeTimeframe    = 60 * time.Minute
	DefaultDipWindowMinutes  = 20
	DefaultDipStepsThreshold = 100
)

// GlucosePoint 血糖数据点
type GlucosePoint struct {
	T      time.Time
	MgDl   float64
	Source string // cgm / manual 等，可为空
}

// ActivityPoint 活动数据点
// Magnitude 统一为每分钟步数语义（运动分钟数在归一化时按固定系数换算）
type ActivityPoint struct {
	T         time.Time
	Magnitude float64
}

// SpikeInterval 血糖尖峰区间
// 未合并时满足 end-start <= timeframe；合并后跨度可能超出
type SpikeInterval struct {
	Start        time.Time
	End          time.Time
	BaselineMgDl float64
	PeakMgDl     float64
	DeltaMgDl    float64
}

// DipInterval 活动低谷区间
// Steps 为合并跨度内观察到的最小窗口步数合计（最差活动水平）
type DipInterval struct {
	Start  time.Time
	End    time.Time
	Steps  int
	Reason string
}

// SpikeSnapshot 相关性事件中的尖峰快照（血糖值已四舍五入到 1 位小数）
type SpikeSnapshot struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	DeltaMgDl    float64   `json:"delta_mg_dl"`
	BaselineMgDl float64   `json:"baseline_mg_dl"`
	PeakMgDl     float64   `json:"peak_mg_dl"`
}

// DipSnapshot 相关性事件中的低谷快照
type DipSnapshot struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Reason string    `json:"reason"`
	Steps  int       `json:"steps"`
}

// CorrelationEvent 尖峰与低谷的配对事件
type CorrelationEvent struct {
	Spike       SpikeSnapshot `json:"spike"`
	ActivityDip DipSnapshot   `json:"activity_dip"`
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
