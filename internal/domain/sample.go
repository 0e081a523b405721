package domain

import "time"

// 样本指标类型（对应 health_samples_* 表的 sample_type 列）
const (
	MetricBloodGlucose    = "blood_glucose"
	MetricHeartRate       = "heart_rate"
	MetricBloodPressure   = "blood_pressure"
	MetricSteps           = "steps"
	MetricExerciseMinutes = "exercise_minutes"
	MetricECG             = "ecg"
)

// 存储模式
const (
	StorageModeRaw        = "raw"        // 写入 health_samples_raw
	StorageModeAggregated = "aggregated" // 写入 health_samples_agg
	StorageModeLocalOnly  = "local_only" // 不落库（客户端本地保留）
)

// 活动指标（低谷检测的数据来源选择）
const (
	ActivityMetricStepsPerMin     = "steps_per_min"
	ActivityMetricExerciseMinutes = "exercise_minutes"
)

var validMetricTypes = map[string]bool{
	MetricBloodGlucose:    true,
	MetricHeartRate:       true,
	MetricBloodPressure:   true,
	MetricSteps:           true,
	MetricExerciseMinutes: true,
	MetricECG:             true,
}

// IsValidMetricType 校验样本指标类型
func IsValidMetricType(t string) bool {
	return validMetricTypes[t]
}

// IsValidStorageMode 校验存储模式
func IsValidStorageMode(m string) bool {
	return m == StorageModeRaw || m == StorageModeAggregated || m == StorageModeLocalOnly
}

// IsValidActivityMetric 校验活动指标
func IsValidActivityMetric(m string) bool {
	return m == ActivityMetricStepsPerMin || m == ActivityMetricExerciseMinutes
}

// Sample 体征样本领域模型（对应 health_samples_raw / health_samples_agg 表）
// 一次写入后不可变；检测引擎只读消费
type Sample struct {
	// 主键
	ID int64 `db:"id"` // BIGSERIAL

	// 归属与类型
	UserID     string `db:"user_id"`
	SampleType string `db:"sample_type"` // blood_glucose / heart_rate / blood_pressure / steps / exercise_minutes / ecg

	// 时间戳（统一 UTC）
	Timestamp time.Time  `db:"timestamp"` // TIMESTAMPTZ, NOT NULL
	EndTime   *time.Time `db:"end_time"`  // TIMESTAMPTZ, nullable（区间型样本的结束时间）
	CreatedAt time.Time  `db:"created_at"`

	// 原始负载
	Data map[string]interface{} `db:"data"` // JSONB

	// 便捷提取列（入库时按类型填充，便于查询/绘图）
	MgDl           *float64 `db:"mg_dl"`           // blood_glucose
	Source         string   `db:"source"`          // blood_glucose 来源（cgm/manual 等）
	Bpm            *float64 `db:"bpm"`             // heart_rate
	SystolicMmhg   *float64 `db:"systolic_mmhg"`   // blood_pressure
	DiastolicMmhg  *float64 `db:"diastolic_mmhg"`  // blood_pressure
	Spm            *float64 `db:"spm"`             // steps（每分钟步数，入库时归一）
	Minutes        *float64 `db:"minutes"`         // exercise_minutes
	AverageBpm     *float64 `db:"average_bpm"`     // ecg
	Classification string   `db:"classification"`  // ecg
}
