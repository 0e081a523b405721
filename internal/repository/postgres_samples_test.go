package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"vitalsense-data/internal/domain"
)

func setupMockSamplesDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresSamplesRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewPostgresSamplesRepository(db)
	return db, mock, repo
}

var sampleTime = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func TestInsertSamples_RawTable(t *testing.T) {
	db, mock, repo := setupMockSamplesDB(t)
	defer db.Close()

	samples := []*domain.Sample{
		{
			UserID:     "user-1",
			SampleType: domain.MetricBloodGlucose,
			Timestamp:  sampleTime,
			CreatedAt:  sampleTime,
			Data:       map[string]interface{}{"mg_dl": 110.0},
			MgDl:       floatPtr(110),
			Source:     "cgm",
		},
		{
			UserID:     "user-1",
			SampleType: domain.MetricSteps,
			Timestamp:  sampleTime.Add(time.Minute),
			CreatedAt:  sampleTime,
			Data:       map[string]interface{}{"spm": 12.0},
			Spm:        floatPtr(12),
		},
	}

	mock.ExpectExec(`INSERT INTO health_samples_raw`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	inserted, err := repo.InsertSamples(context.Background(), domain.StorageModeRaw, samples)

	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSamples_AggregatedTable(t *testing.T) {
	db, mock, repo := setupMockSamplesDB(t)
	defer db.Close()

	samples := []*domain.Sample{
		{
			UserID:     "user-1",
			SampleType: domain.MetricExerciseMinutes,
			Timestamp:  sampleTime,
			CreatedAt:  sampleTime,
			Data:       map[string]interface{}{"minutes": 30.0},
			Minutes:    floatPtr(30),
		},
	}

	mock.ExpectExec(`INSERT INTO health_samples_agg`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := repo.InsertSamples(context.Background(), domain.StorageModeAggregated, samples)

	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSamples_EmptyBatch(t *testing.T) {
	db, mock, repo := setupMockSamplesDB(t)
	defer db.Close()

	inserted, err := repo.InsertSamples(context.Background(), domain.StorageModeRaw, nil)

	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSamples_UnsupportedStorageMode(t *testing.T) {
	db, _, repo := setupMockSamplesDB(t)
	defer db.Close()

	_, err := repo.InsertSamples(context.Background(), "somewhere_else", []*domain.Sample{
		{UserID: "user-1", SampleType: domain.MetricSteps, Timestamp: sampleTime},
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage mode")
}

func TestGetSamplesByTimeRange_ScansExtractedColumns(t *testing.T) {
	db, mock, repo := setupMockSamplesDB(t)
	defer db.Close()

	start := sampleTime.Add(-24 * time.Hour)
	end := sampleTime

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "sample_type", "timestamp", "end_time", "created_at", "data",
		"mg_dl", "source", "bpm", "systolic_mmhg", "diastolic_mmhg", "spm", "minutes",
		"average_bpm", "classification",
	}).AddRow(
		int64(1), "user-1", "blood_glucose", sampleTime.Add(-time.Hour), nil, sampleTime,
		[]byte(`{"mg_dl":110}`), 110.0, "cgm", nil, nil, nil, nil, nil, nil, nil,
	).AddRow(
		int64(2), "user-1", "steps", sampleTime.Add(-30*time.Minute), nil, sampleTime,
		[]byte(`{"spm":12}`), nil, nil, nil, nil, nil, 12.0, nil, nil, nil,
	)

	mock.ExpectQuery(`SELECT (.+) FROM health_samples_raw`).
		WithArgs("user-1", start, end).
		WillReturnRows(rows)

	samples, err := repo.GetSamplesByTimeRange(context.Background(), "user-1", start, end)

	require.NoError(t, err)
	require.Len(t, samples, 2)

	require.NotNil(t, samples[0].MgDl)
	assert.Equal(t, 110.0, *samples[0].MgDl)
	assert.Equal(t, "cgm", samples[0].Source)
	assert.Nil(t, samples[0].Spm)

	require.NotNil(t, samples[1].Spm)
	assert.Equal(t, 12.0, *samples[1].Spm)
	assert.Equal(t, map[string]interface{}{"spm": 12.0}, samples[1].Data)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSamplesByTimeRange_Empty(t *testing.T) {
	db, mock, repo := setupMockSamplesDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM health_samples_raw`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "sample_type", "timestamp", "end_time", "created_at", "data",
			"mg_dl", "source", "bpm", "systolic_mmhg", "diastolic_mmhg", "spm", "minutes",
			"average_bpm", "classification",
		}))

	samples, err := repo.GetSamplesByTimeRange(context.Background(), "user-1", sampleTime.Add(-time.Hour), sampleTime)

	require.NoError(t, err)
	assert.Empty(t, samples)
	require.NoError(t, mock.ExpectationsWereMet())
}

func floatPtr(f float64) *float64 { return &f }
