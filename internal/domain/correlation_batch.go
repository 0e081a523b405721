package domain

import (
	"encoding/json"
	"time"
)

// CorrelationBatch 相关性事件批次（对应 correlation_events 表）
// 一次检测运行产生一行：窗口、活动指标与事件数组快照
type CorrelationBatch struct {
	BatchID        string          `db:"batch_id"` // UUID
	UserID         string          `db:"user_id"`
	CreatedAt      time.Time       `db:"created_at"`
	WindowStart    time.Time       `db:"window_start"`
	WindowEnd      time.Time       `db:"window_end"`
	ActivityMetric string          `db:"activity_metric"` // steps_per_min / exercise_minutes
	Events         json.RawMessage `db:"events"`          // JSONB 事件数组
}
