package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"vitalsense-data/internal/domain"
	"vitalsense-data/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var ingestNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeSamplesRepo struct {
	storageMode string
	inserted    []*domain.Sample
	fetched     []*domain.Sample
	fetchErr    error
}

func (f *fakeSamplesRepo) InsertSamples(ctx context.Context, storageMode string, samples []*domain.Sample) (int, error) {
	f.storageMode = storageMode
	f.inserted = append(f.inserted, samples...)
	return len(samples), nil
}

func (f *fakeSamplesRepo) GetSamplesByTimeRange(ctx context.Context, userID string, start, end time.Time) ([]*domain.Sample, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.fetched, nil
}

type fakeKV struct {
	data map[string]string
}

func newFakeKV() *fakeKV { return &fakeKV{data: map[string]string{}} }

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", store.ErrMiss
	}
	return v, nil
}

func (f *fakeKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	f.data[key] = value
	return nil
}

func (f *fakeKV) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func newTestSampleService(repo *fakeSamplesRepo, kv store.KV) *sampleService {
	svc := NewSampleService(repo, kv, time.Hour, zap.NewNop())
	svc.SetNowForTest(func() time.Time { return ingestNow })
	return svc
}

func TestIngestSamples_LocalOnlyShortCircuits(t *testing.T) {
	repo := &fakeSamplesRepo{}
	svc := newTestSampleService(repo, nil)

	inserted, err := svc.IngestSamples(context.Background(), &IngestRequest{
		UserID:      "user-1",
		StorageMode: domain.StorageModeLocalOnly,
		Samples: []SampleIn{
			{Type: domain.MetricSteps, Timestamp: ingestNow, Data: map[string]interface{}{"spm": 10.0}},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Empty(t, repo.inserted, "local_only must not touch storage")
}

func TestIngestSamples_RejectsFutureTimestampBeforeAnyInsert(t *testing.T) {
	repo := &fakeSamplesRepo{}
	svc := newTestSampleService(repo, nil)

	_, err := svc.IngestSamples(context.Background(), &IngestRequest{
		UserID: "user-1",
		Samples: []SampleIn{
			{Type: domain.MetricSteps, Timestamp: ingestNow, Data: map[string]interface{}{"spm": 10.0}},
			{Type: domain.MetricSteps, Timestamp: ingestNow.Add(6 * time.Minute), Data: map[string]interface{}{"spm": 10.0}},
		},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "timestamp is in the future")
	assert.Empty(t, repo.inserted, "whole batch must be rejected before any insert")
}

func TestIngestSamples_AllowsFiveMinuteClockSkew(t *testing.T) {
	repo := &fakeSamplesRepo{}
	svc := newTestSampleService(repo, nil)

	inserted, err := svc.IngestSamples(context.Background(), &IngestRequest{
		UserID: "user-1",
		Samples: []SampleIn{
			{Type: domain.MetricHeartRate, Timestamp: ingestNow.Add(5 * time.Minute), Data: map[string]interface{}{"bpm": 72.0}},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
}

func TestIngestSamples_ExtractsConvenienceFields(t *testing.T) {
	repo := &fakeSamplesRepo{}
	svc := newTestSampleService(repo, nil)

	_, err := svc.IngestSamples(context.Background(), &IngestRequest{
		UserID: "user-1",
		Samples: []SampleIn{
			{Type: domain.MetricBloodGlucose, Timestamp: ingestNow, Data: map[string]interface{}{"mg_dl": 115.0, "source": "cgm"}},
			{Type: domain.MetricBloodPressure, Timestamp: ingestNow, Data: map[string]interface{}{"systolic_mmhg": 120.0, "diastolic_mmhg": 80.0}},
			{Type: domain.MetricSteps, Timestamp: ingestNow, Data: map[string]interface{}{"steps": 50.0, "interval_minutes": 5.0}},
			{Type: domain.MetricECG, Timestamp: ingestNow, Data: map[string]interface{}{"average_bpm": 68.0, "classification": "sinus_rhythm"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, repo.inserted, 4)

	glucose := repo.inserted[0]
	require.NotNil(t, glucose.MgDl)
	assert.Equal(t, 115.0, *glucose.MgDl)
	assert.Equal(t, "cgm", glucose.Source)

	bp := repo.inserted[1]
	require.NotNil(t, bp.SystolicMmhg)
	require.NotNil(t, bp.DiastolicMmhg)

	steps := repo.inserted[2]
	require.NotNil(t, steps.Spm)
	assert.Equal(t, 10.0, *steps.Spm, "steps normalized by interval_minutes")

	ecg := repo.inserted[3]
	require.NotNil(t, ecg.AverageBpm)
	assert.Equal(t, "sinus_rhythm", ecg.Classification)
}

func TestIngestSamples_PrefersExplicitSpm(t *testing.T) {
	repo := &fakeSamplesRepo{}
	svc := newTestSampleService(repo, nil)

	_, err := svc.IngestSamples(context.Background(), &IngestRequest{
		UserID: "user-1",
		Samples: []SampleIn{
			{Type: domain.MetricSteps, Timestamp: ingestNow, Data: map[string]interface{}{"spm": 42.0, "steps": 1000.0}},
		},
	})
	require.NoError(t, err)
	require.Len(t, repo.inserted, 1)
	require.NotNil(t, repo.inserted[0].Spm)
	assert.Equal(t, 42.0, *repo.inserted[0].Spm)
}

func TestIngestSamples_InvalidType(t *testing.T) {
	repo := &fakeSamplesRepo{}
	svc := newTestSampleService(repo, nil)

	_, err := svc.IngestSamples(context.Background(), &IngestRequest{
		UserID: "user-1",
		Samples: []SampleIn{
			{Type: "body_temperature", Timestamp: ingestNow, Data: map[string]interface{}{}},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sample type")
}

func TestIngestSamples_MissingUserID(t *testing.T) {
	svc := newTestSampleService(&fakeSamplesRepo{}, nil)

	_, err := svc.IngestSamples(context.Background(), &IngestRequest{})
	require.Error(t, err)
}

func TestIngestSamples_UpdatesLatestVitalsCache(t *testing.T) {
	repo := &fakeSamplesRepo{}
	kv := newFakeKV()
	svc := newTestSampleService(repo, kv)

	_, err := svc.IngestSamples(context.Background(), &IngestRequest{
		UserID: "user-1",
		Samples: []SampleIn{
			{Type: domain.MetricHeartRate, Timestamp: ingestNow.Add(-10 * time.Minute), Data: map[string]interface{}{"bpm": 60.0}},
			{Type: domain.MetricHeartRate, Timestamp: ingestNow, Data: map[string]interface{}{"bpm": 72.0}},
		},
	})
	require.NoError(t, err)

	raw, err := kv.Get(context.Background(), store.LatestVitalKey("user-1", domain.MetricHeartRate))
	require.NoError(t, err)

	var cached map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, domain.MetricHeartRate, cached["type"])
	// 同指标缓存批内最新一条
	data, ok := cached["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 72.0, data["bpm"])
}

func TestLatestVitals_ReturnsPerMetricCache(t *testing.T) {
	repo := &fakeSamplesRepo{}
	kv := newFakeKV()
	svc := newTestSampleService(repo, kv)

	_, err := svc.IngestSamples(context.Background(), &IngestRequest{
		UserID: "user-1",
		Samples: []SampleIn{
			{Type: domain.MetricHeartRate, Timestamp: ingestNow, Data: map[string]interface{}{"bpm": 72.0}},
			{Type: domain.MetricBloodGlucose, Timestamp: ingestNow, Data: map[string]interface{}{"mg_dl": 110.0}},
		},
	})
	require.NoError(t, err)

	vitals, err := svc.LatestVitals(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, vitals, 2)
	assert.Contains(t, vitals, domain.MetricHeartRate)
	assert.Contains(t, vitals, domain.MetricBloodGlucose)
}
