package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"vitalsense-data/internal/domain"
)

// PostgresSamplesRepository 体征样本 Repository 实现
type PostgresSamplesRepository struct {
	db *sql.DB
}

// NewPostgresSamplesRepository 创建体征样本 Repository
func NewPostgresSamplesRepository(db *sql.DB) *PostgresSamplesRepository {
	return &PostgresSamplesRepository{db: db}
}

// 确保实现了接口
var _ SamplesRepository = (*PostgresSamplesRepository)(nil)

const sampleColumns = `user_id, sample_type, timestamp, end_time, created_at, data,
	mg_dl, source, bpm, systolic_mmhg, diastolic_mmhg, spm, minutes, average_bpm, classification`

// tableForStorageMode 选择写入表（local_only 在 service 层短路，不会到这里）
func tableForStorageMode(storageMode string) (string, error) {
	switch storageMode {
	case domain.StorageModeRaw, "":
		return "health_samples_raw", nil
	case domain.StorageModeAggregated:
		return "health_samples_agg", nil
	default:
		return "", fmt.Errorf("unsupported storage mode: %s", storageMode)
	}
}

// ============================================
// 写入
// ============================================

// InsertSamples 批量写入样本（单条 INSERT 多行 VALUES）
func (r *PostgresSamplesRepository) InsertSamples(ctx context.Context, storageMode string, samples []*domain.Sample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	table, err := tableForStorageMode(storageMode)
	if err != nil {
		return 0, err
	}

	const colsPerRow = 15
	placeholders := make([]string, 0, len(samples))
	args := make([]interface{}, 0, len(samples)*colsPerRow)

	for i, s := range samples {
		dataJSON, err := json.Marshal(s.Data)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal sample data: %w", err)
		}

		base := i * colsPerRow
		row := make([]string, colsPerRow)
		for j := range row {
			row[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(row, ", ")+")")

		args = append(args,
			s.UserID,
			s.SampleType,
			s.Timestamp,
			nullableTime(s.EndTime),
			s.CreatedAt,
			dataJSON,
			s.MgDl,
			nullableString(s.Source),
			s.Bpm,
			s.SystolicMmhg,
			s.DiastolicMmhg,
			s.Spm,
			s.Minutes,
			s.AverageBpm,
			nullableString(s.Classification),
		)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		table, sampleColumns, strings.Join(placeholders, ", "))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert samples: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		// 驱动不支持 RowsAffected 时按请求条数返回
		return len(samples), nil
	}
	return int(inserted), nil
}

// ============================================
// 查询
// ============================================

// GetSamplesByTimeRange 读取时间窗口内的 raw 样本（timestamp 升序，检测引擎输入）
func (r *PostgresSamplesRepository) GetSamplesByTimeRange(ctx context.Context, userID string, start, end time.Time) ([]*domain.Sample, error) {
	query := `
		SELECT id, ` + sampleColumns + `
		FROM health_samples_raw
		WHERE user_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []*domain.Sample
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return samples, nil
}

func scanSample(rows *sql.Rows) (*domain.Sample, error) {
	var s domain.Sample
	var endTime sql.NullTime
	var dataJSON []byte
	var mgdl, bpm, systolic, diastolic, spm, minutes, avgBpm sql.NullFloat64
	var source, classification sql.NullString

	if err := rows.Scan(
		&s.ID,
		&s.UserID,
		&s.SampleType,
		&s.Timestamp,
		&endTime,
		&s.CreatedAt,
		&dataJSON,
		&mgdl,
		&source,
		&bpm,
		&systolic,
		&diastolic,
		&spm,
		&minutes,
		&avgBpm,
		&classification,
	); err != nil {
		return nil, fmt.Errorf("failed to scan sample: %w", err)
	}

	if endTime.Valid {
		t := endTime.Time
		s.EndTime = &t
	}
	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &s.Data); err != nil {
			// data 列损坏不影响已提取的列
			s.Data = map[string]interface{}{}
		}
	}
	s.MgDl = nullFloatPtr(mgdl)
	s.Bpm = nullFloatPtr(bpm)
	s.SystolicMmhg = nullFloatPtr(systolic)
	s.DiastolicMmhg = nullFloatPtr(diastolic)
	s.Spm = nullFloatPtr(spm)
	s.Minutes = nullFloatPtr(minutes)
	s.AverageBpm = nullFloatPtr(avgBpm)
	if source.Valid {
		s.Source = source.String
	}
	if classification.Valid {
		s.Classification = classification.String
	}

	return &s, nil
}

func nullFloatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
