package repository

import (
	"context"
	"database/sql"
	"fmt"

	"vitalsense-data/internal/domain"
)

// PostgresCorrelationEventsRepository 相关性事件批次 Repository 实现
type PostgresCorrelationEventsRepository struct {
	db *sql.DB
}

// NewPostgresCorrelationEventsRepository 创建相关性事件批次 Repository
func NewPostgresCorrelationEventsRepository(db *sql.DB) *PostgresCorrelationEventsRepository {
	return &PostgresCorrelationEventsRepository{db: db}
}

// 确保实现了接口
var _ CorrelationEventsRepository = (*PostgresCorrelationEventsRepository)(nil)

// CreateBatch 写入一次检测运行的事件批次
func (r *PostgresCorrelationEventsRepository) CreateBatch(ctx context.Context, batch *domain.CorrelationBatch) error {
	query := `
		INSERT INTO correlation_events (
			batch_id, user_id, created_at, window_start, window_end, activity_metric, events
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		batch.BatchID,
		batch.UserID,
		batch.CreatedAt,
		batch.WindowStart,
		batch.WindowEnd,
		batch.ActivityMetric,
		[]byte(batch.Events),
	)
	if err != nil {
		return fmt.Errorf("failed to insert correlation batch: %w", err)
	}

	return nil
}

// ListRecentBatches 按用户查询最近批次（created_at 降序）
func (r *PostgresCorrelationEventsRepository) ListRecentBatches(ctx context.Context, userID string, limit int) ([]*domain.CorrelationBatch, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT batch_id, user_id, created_at, window_start, window_end, activity_metric, events
		FROM correlation_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query correlation batches: %w", err)
	}
	defer rows.Close()

	var batches []*domain.CorrelationBatch
	for rows.Next() {
		var b domain.CorrelationBatch
		var events []byte
		if err := rows.Scan(
			&b.BatchID,
			&b.UserID,
			&b.CreatedAt,
			&b.WindowStart,
			&b.WindowEnd,
			&b.ActivityMetric,
			&events,
		); err != nil {
			return nil, fmt.Errorf("failed to scan correlation batch: %w", err)
		}
		b.Events = events
		batches = append(batches, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return batches, nil
}
