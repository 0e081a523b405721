// Package transformer 将异构的样本记录归一化为检测引擎的强类型数据点。
// 字段兜底（mg_dl/value、spm/steps）只发生在这里，检测引擎不做任何字段查找。
// 归一化不排序、不报错：缺少必需数值字段的点直接丢弃，坏数据只产生更少的点。
package transformer

import (
	"strconv"

	"vitalsense-data/internal/detector"
	"vitalsense-data/internal/domain"
)

// ExerciseMinutesScale 运动分钟数换算为每分钟步数语义的固定系数。
// 设计常量，不随部署配置。
const ExerciseMinutesScale = 5.0

// GlucosePoints 从样本中提取血糖数据点。
// 优先使用入库时提取的 mg_dl 列，缺失时回退到 data 里的 mg_dl 或 value 字段。
func GlucosePoints(samples []*domain.Sample) []detector.GlucosePoint {
	points := []detector.GlucosePoint{}
	for _, s := range samples {
		if s == nil || s.SampleType != domain.MetricBloodGlucose {
			continue
		}
		mgdl, ok := glucoseValue(s)
		if !ok {
			continue
		}
		points = append(points, detector.GlucosePoint{
			T:      s.Timestamp.UTC(),
			MgDl:   mgdl,
			Source: s.Source,
		})
	}
	return points
}

func glucoseValue(s *domain.Sample) (float64, bool) {
	if s.MgDl != nil {
		return *s.MgDl, true
	}
	if v, ok := toFloat(s.Data["mg_dl"]); ok {
		return v, true
	}
	return toFloat(s.Data["value"])
}

// ActivityPoints 按活动指标提取活动数据点。
// steps_per_min：使用 spm 列，缺失时回退到 data.spm，
// 再回退到 steps/interval_minutes（间隔默认 1 分钟），都没有按 0 处理。
// exercise_minutes：minutes 乘以固定系数后复用步数低谷语义。
func ActivityPoints(samples []*domain.Sample, activityMetric string) []detector.ActivityPoint {
	points := []detector.ActivityPoint{}
	for _, s := range samples {
		if s == nil {
			continue
		}
		switch activityMetric {
		case domain.ActivityMetricExerciseMinutes:
			if s.SampleType != domain.MetricExerciseMinutes {
				continue
			}
			minutes := 0.0
			if s.Minutes != nil {
				minutes = *s.Minutes
			} else if v, ok := toFloat(s.Data["minutes"]); ok {
				minutes = v
			}
			points = append(points, detector.ActivityPoint{
				T:         s.Timestamp.UTC(),
				Magnitude: minutes * ExerciseMinutesScale,
			})
		default: // steps_per_min
			if s.SampleType != domain.MetricSteps {
				continue
			}
			points = append(points, detector.ActivityPoint{
				T:         s.Timestamp.UTC(),
				Magnitude: stepsPerMinute(s),
			})
		}
	}
	return points
}

func stepsPerMinute(s *domain.Sample) float64 {
	if s.Spm != nil {
		return *s.Spm
	}
	if v, ok := toFloat(s.Data["spm"]); ok {
		return v
	}
	steps, ok := toFloat(s.Data["steps"])
	if !ok {
		return 0
	}
	interval, ok := toFloat(s.Data["interval_minutes"])
	if !ok || interval <= 0 {
		interval = 1
	}
	return steps / interval
}

// toFloat 宽松的数值转换（JSON 反序列化后数值可能是多种类型）
func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
