package repository

import (
	"context"

	"vitalsense-data/internal/domain"
)

// CorrelationEventsRepository 相关性事件批次 Repository 接口
type CorrelationEventsRepository interface {
	// CreateBatch 写入一次检测运行的事件批次
	CreateBatch(ctx context.Context, batch *domain.CorrelationBatch) error

	// ListRecentBatches 按用户查询最近的事件批次（created_at 降序）
	ListRecentBatches(ctx context.Context, userID string, limit int) ([]*domain.CorrelationBatch, error)
}
