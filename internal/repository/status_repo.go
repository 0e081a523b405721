package repository

import (
	"context"

	"vitalsense-data/internal/domain"
)

// StatusRepository 客户端健康检查 Repository 接口
type StatusRepository interface {
	CreateStatusCheck(ctx context.Context, check *domain.StatusCheck) error
	ListStatusChecks(ctx context.Context, limit int) ([]*domain.StatusCheck, error)
}
