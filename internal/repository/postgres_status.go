package repository

import (
	"context"
	"database/sql"
	"fmt"

	"vitalsense-data/internal/domain"
)

// PostgresStatusRepository 客户端健康检查 Repository 实现
type PostgresStatusRepository struct {
	db *sql.DB
}

// NewPostgresStatusRepository 创建健康检查 Repository
func NewPostgresStatusRepository(db *sql.DB) *PostgresStatusRepository {
	return &PostgresStatusRepository{db: db}
}

// 确保实现了接口
var _ StatusRepository = (*PostgresStatusRepository)(nil)

func (r *PostgresStatusRepository) CreateStatusCheck(ctx context.Context, check *domain.StatusCheck) error {
	query := `INSERT INTO status_checks (id, client_name, timestamp) VALUES ($1, $2, $3)`

	_, err := r.db.ExecContext(ctx, query, check.ID, check.ClientName, check.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert status check: %w", err)
	}
	return nil
}

func (r *PostgresStatusRepository) ListStatusChecks(ctx context.Context, limit int) ([]*domain.StatusCheck, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	query := `SELECT id, client_name, timestamp FROM status_checks ORDER BY timestamp DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query status checks: %w", err)
	}
	defer rows.Close()

	var checks []*domain.StatusCheck
	for rows.Next() {
		var c domain.StatusCheck
		if err := rows.Scan(&c.ID, &c.ClientName, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan status check: %w", err)
		}
		checks = append(checks, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return checks, nil
}
