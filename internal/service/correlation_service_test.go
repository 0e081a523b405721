package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"vitalsense-data/internal/config"
	"vitalsense-data/internal/detector"
	"vitalsense-data/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var detectNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeEventsRepo struct {
	batches []*domain.CorrelationBatch
	listed  []*domain.CorrelationBatch
}

func (f *fakeEventsRepo) CreateBatch(ctx context.Context, batch *domain.CorrelationBatch) error {
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeEventsRepo) ListRecentBatches(ctx context.Context, userID string, limit int) ([]*domain.CorrelationBatch, error) {
	return f.listed, nil
}

func defaultDetection() config.DetectionConfig {
	return config.DetectionConfig{
		SpikeDeltaMgDl:    30,
		SpikeTimeframeMin: 60,
		DipWindowMin:      20,
		DipStepsThreshold: 100,
	}
}

// correlatedSamples 构造窗口内既有血糖尖峰又有零活动的样本集：
// 基线 110 -> 峰值 150（45 分钟内），同时段 26 分钟 0 步。
func correlatedSamples() []*domain.Sample {
	t0 := detectNow.Add(-2 * time.Hour)
	samples := []*domain.Sample{
		{SampleType: domain.MetricBloodGlucose, Timestamp: t0, MgDl: floatPtr(110), Source: "cgm"},
		{SampleType: domain.MetricBloodGlucose, Timestamp: t0.Add(45 * time.Minute), MgDl: floatPtr(150), Source: "cgm"},
	}
	for m := 0; m <= 25; m++ {
		samples = append(samples, &domain.Sample{
			SampleType: domain.MetricSteps,
			Timestamp:  t0.Add(time.Duration(m) * time.Minute),
			Spm:        floatPtr(0),
		})
	}
	return samples
}

func newTestCorrelationService(samplesRepo *fakeSamplesRepo, eventsRepo *fakeEventsRepo, redisClient *redis.Client, stream string) *correlationService {
	svc := NewCorrelationService(samplesRepo, eventsRepo, redisClient, stream, defaultDetection(), zap.NewNop())
	svc.SetNowForTest(func() time.Time { return detectNow })
	return svc
}

func TestRunCorrelation_PersistsBatchAndPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	samplesRepo := &fakeSamplesRepo{fetched: correlatedSamples()}
	eventsRepo := &fakeEventsRepo{}
	svc := newTestCorrelationService(samplesRepo, eventsRepo, redisClient, "correlation:events:stream")

	created, err := svc.RunCorrelation(context.Background(), "user-1", domain.ActivityMetricStepsPerMin)

	require.NoError(t, err)
	assert.Equal(t, 1, created)

	require.Len(t, eventsRepo.batches, 1)
	batch := eventsRepo.batches[0]
	assert.NotEmpty(t, batch.BatchID)
	assert.Equal(t, "user-1", batch.UserID)
	assert.Equal(t, domain.ActivityMetricStepsPerMin, batch.ActivityMetric)
	assert.Equal(t, detectNow.Add(-24*time.Hour), batch.WindowStart)
	assert.Equal(t, detectNow, batch.WindowEnd)

	var events []detector.CorrelationEvent
	require.NoError(t, json.Unmarshal(batch.Events, &events))
	require.Len(t, events, 1)
	assert.Equal(t, 40.0, events[0].Spike.DeltaMgDl)
	assert.Equal(t, 0, events[0].ActivityDip.Steps)

	// 批次通知已发布到 Redis Stream
	n, err := redisClient.XLen(context.Background(), "correlation:events:stream").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRunCorrelation_NoEventsNoBatch(t *testing.T) {
	samplesRepo := &fakeSamplesRepo{fetched: nil}
	eventsRepo := &fakeEventsRepo{}
	svc := newTestCorrelationService(samplesRepo, eventsRepo, nil, "")

	created, err := svc.RunCorrelation(context.Background(), "user-1", "")

	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Empty(t, eventsRepo.batches, "no events means nothing is persisted")
}

func TestRunCorrelation_InvalidActivityMetric(t *testing.T) {
	svc := newTestCorrelationService(&fakeSamplesRepo{}, &fakeEventsRepo{}, nil, "")

	_, err := svc.RunCorrelation(context.Background(), "user-1", "heartbeats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid activity_metric")
}

func TestRunCorrelation_ExerciseMinutesProxy(t *testing.T) {
	// 低运动分钟（x5 后仍低于阈值）覆盖整个尖峰窗口
	t0 := detectNow.Add(-2 * time.Hour)
	samples := []*domain.Sample{
		{SampleType: domain.MetricBloodGlucose, Timestamp: t0, MgDl: floatPtr(100)},
		{SampleType: domain.MetricBloodGlucose, Timestamp: t0.Add(30 * time.Minute), MgDl: floatPtr(140)},
	}
	for m := 0; m <= 30; m++ {
		samples = append(samples, &domain.Sample{
			SampleType: domain.MetricExerciseMinutes,
			Timestamp:  t0.Add(time.Duration(m) * time.Minute),
			Minutes:    floatPtr(0),
		})
	}

	samplesRepo := &fakeSamplesRepo{fetched: samples}
	eventsRepo := &fakeEventsRepo{}
	svc := newTestCorrelationService(samplesRepo, eventsRepo, nil, "")

	created, err := svc.RunCorrelation(context.Background(), "user-1", domain.ActivityMetricExerciseMinutes)

	require.NoError(t, err)
	assert.Equal(t, 1, created)
	require.Len(t, eventsRepo.batches, 1)
	assert.Equal(t, domain.ActivityMetricExerciseMinutes, eventsRepo.batches[0].ActivityMetric)
}

func TestDashboard24h_SeriesInclusionRules(t *testing.T) {
	samples := []*domain.Sample{
		{SampleType: domain.MetricBloodGlucose, Timestamp: detectNow.Add(-time.Hour), MgDl: floatPtr(110), Source: "cgm"},
		{SampleType: domain.MetricBloodGlucose, Timestamp: detectNow.Add(-50 * time.Minute)}, // 无 mg_dl：不纳入
		{SampleType: domain.MetricHeartRate, Timestamp: detectNow.Add(-time.Hour), Bpm: floatPtr(72)},
		{SampleType: domain.MetricBloodPressure, Timestamp: detectNow.Add(-time.Hour), SystolicMmhg: floatPtr(120)}, // 缺舒张压：不纳入
		{SampleType: domain.MetricSteps, Timestamp: detectNow.Add(-time.Hour)},                                      // 缺 spm：按 0 纳入
		{SampleType: domain.MetricExerciseMinutes, Timestamp: detectNow.Add(-time.Hour), Minutes: floatPtr(15)},
		{SampleType: domain.MetricECG, Timestamp: detectNow.Add(-time.Hour), AverageBpm: floatPtr(68), Classification: "sinus_rhythm"},
	}

	samplesRepo := &fakeSamplesRepo{fetched: samples}
	svc := newTestCorrelationService(samplesRepo, &fakeEventsRepo{}, nil, "")

	dashboard, err := svc.Dashboard24h(context.Background(), "user-1", "")

	require.NoError(t, err)
	assert.Equal(t, detectNow.Add(-24*time.Hour).Format(time.RFC3339), dashboard.Window.Start)
	assert.Equal(t, detectNow.Format(time.RFC3339), dashboard.Window.End)

	assert.Len(t, dashboard.Series.BloodGlucose, 1)
	assert.Len(t, dashboard.Series.HeartRate, 1)
	assert.Empty(t, dashboard.Series.BloodPressure)
	require.Len(t, dashboard.Series.StepsPerMin, 1)
	assert.Equal(t, 0.0, dashboard.Series.StepsPerMin[0].Spm)
	assert.Len(t, dashboard.Series.ExerciseMinutes, 1)
	require.Len(t, dashboard.Series.ECG, 1)
	assert.Equal(t, "sinus_rhythm", dashboard.Series.ECG[0].Classification)
	assert.Empty(t, dashboard.Correlations)
}

func TestDashboard24h_LiveCorrelationsNotPersisted(t *testing.T) {
	samplesRepo := &fakeSamplesRepo{fetched: correlatedSamples()}
	eventsRepo := &fakeEventsRepo{}
	svc := newTestCorrelationService(samplesRepo, eventsRepo, nil, "")

	dashboard, err := svc.Dashboard24h(context.Background(), "user-1", domain.ActivityMetricStepsPerMin)

	require.NoError(t, err)
	require.Len(t, dashboard.Correlations, 1)
	assert.Empty(t, eventsRepo.batches, "dashboard correlations are computed live, never persisted")
}

func TestListRecentBatches_RequiresUserID(t *testing.T) {
	svc := newTestCorrelationService(&fakeSamplesRepo{}, &fakeEventsRepo{}, nil, "")

	_, err := svc.ListRecentBatches(context.Background(), "", 10)
	require.Error(t, err)
}

func floatPtr(f float64) *float64 { return &f }
