package repository

import (
	"context"
	"time"

	"vitalsense-data/internal/domain"
)

// SamplesRepository 体征样本 Repository 接口
// 写入按 storage_mode 落到 health_samples_raw 或 health_samples_agg；
// 检测引擎与仪表盘只读取 raw 表。
type SamplesRepository interface {
	// InsertSamples 批量写入样本，返回写入条数
	InsertSamples(ctx context.Context, storageMode string, samples []*domain.Sample) (int, error)

	// GetSamplesByTimeRange 按用户与时间窗口读取 raw 样本（timestamp 升序）
	GetSamplesByTimeRange(ctx context.Context, userID string, start, end time.Time) ([]*domain.Sample, error)
}
