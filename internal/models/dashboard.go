package models

import "vitalsense-data/internal/detector"

// TimeWindow 仪表盘的时间窗口（ISO-8601 UTC 字符串）
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// GlucoseSeriesPoint 血糖序列点
type GlucoseSeriesPoint struct {
	T      string  `json:"t"`
	MgDl   float64 `json:"mg_dl"`
	Source string  `json:"source,omitempty"`
}

// HeartRateSeriesPoint 心率序列点
type HeartRateSeriesPoint struct {
	T   string  `json:"t"`
	Bpm float64 `json:"bpm"`
}

// BloodPressureSeriesPoint 血压序列点（收缩压/舒张压都存在才纳入序列）
type BloodPressureSeriesPoint struct {
	T             string  `json:"t"`
	SystolicMmhg  float64 `json:"systolic_mmhg"`
	DiastolicMmhg float64 `json:"diastolic_mmhg"`
}

// StepsSeriesPoint 每分钟步数序列点
type StepsSeriesPoint struct {
	T   string  `json:"t"`
	Spm float64 `json:"spm"`
}

// ExerciseSeriesPoint 运动分钟数序列点
type ExerciseSeriesPoint struct {
	T       string  `json:"t"`
	Minutes float64 `json:"minutes"`
}

// ECGSeriesPoint 心电序列点（字段可缺失，透传）
type ECGSeriesPoint struct {
	T              string   `json:"t"`
	AverageBpm     *float64 `json:"average_bpm"`
	Classification string   `json:"classification,omitempty"`
}

// DashboardSeries 仪表盘的六条序列
type DashboardSeries struct {
	BloodGlucose    []GlucoseSeriesPoint       `json:"blood_glucose"`
	HeartRate       []HeartRateSeriesPoint     `json:"heart_rate"`
	BloodPressure   []BloodPressureSeriesPoint `json:"blood_pressure"`
	StepsPerMin     []StepsSeriesPoint         `json:"steps_per_min"`
	ExerciseMinutes []ExerciseSeriesPoint      `json:"exercise_minutes"`
	ECG             []ECGSeriesPoint           `json:"ecg"`
}

// Dashboard24h 24 小时仪表盘响应
// correlations 是实时计算结果，不落库
type Dashboard24h struct {
	Window       TimeWindow                 `json:"window"`
	Series       DashboardSeries            `json:"series"`
	Correlations []detector.CorrelationEvent `json:"correlations"`
}

// LatestVital 某一指标的最新缓存样本
type LatestVital struct {
	Type      string                 `json:"type"`
	Timestamp string                 `json:"timestamp"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}
