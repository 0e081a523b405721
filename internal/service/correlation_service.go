package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vitalsense-data/internal/config"
	"vitalsense-data/internal/detector"
	"vitalsense-data/internal/domain"
	"vitalsense-data/internal/models"
	"vitalsense-data/internal/repository"
	"vitalsense-data/internal/transformer"

	rediscommon "vitalsense-data/internal/common/redis"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CorrelationWindowHours 检测与仪表盘使用的滚动窗口宽度
const CorrelationWindowHours = 24

// CorrelationService 尖峰/低谷检测的编排层：
// 取 24h 样本 -> 归一化 -> 检测 -> 相关性匹配 -> 落库 + 发布通知。
// 检测本身是纯函数（internal/detector），这里只做 I/O 与装配。
type CorrelationService interface {
	// RunCorrelation 运行一次检测，事件落库并发布通知，返回事件数
	RunCorrelation(ctx context.Context, userID, activityMetric string) (int, error)

	// Dashboard24h 构建 24h 仪表盘（六条序列 + 实时相关性，不落库）
	Dashboard24h(ctx context.Context, userID, activityMetric string) (*models.Dashboard24h, error)

	// ListRecentBatches 查询最近已落库的事件批次
	ListRecentBatches(ctx context.Context, userID string, limit int) ([]*domain.CorrelationBatch, error)
}

type correlationService struct {
	samplesRepo  repository.SamplesRepository
	eventsRepo   repository.CorrelationEventsRepository
	redisClient  *rediscommon.Client
	eventsStream string
	detection    config.DetectionConfig
	logger       *zap.Logger
	nowFn        func() time.Time
}

// NewCorrelationService 创建检测编排服务
// redisClient 为 nil 时跳过流通知（事件仍然落库）
func NewCorrelationService(
	samplesRepo repository.SamplesRepository,
	eventsRepo repository.CorrelationEventsRepository,
	redisClient *rediscommon.Client,
	eventsStream string,
	detection config.DetectionConfig,
	logger *zap.Logger,
) *correlationService {
	return &correlationService{
		samplesRepo:  samplesRepo,
		eventsRepo:   eventsRepo,
		redisClient:  redisClient,
		eventsStream: eventsStream,
		detection:    detection,
		logger:       logger,
		nowFn:        time.Now,
	}
}

// SetNowForTest 注入时钟（窗口边界的确定性测试）
func (s *correlationService) SetNowForTest(fn func() time.Time) {
	s.nowFn = fn
}

// window24h 锚定窗口：[now-24h, now]，统一 UTC
func (s *correlationService) window24h() (time.Time, time.Time) {
	end := s.nowFn().UTC()
	return end.Add(-CorrelationWindowHours * time.Hour), end
}

// detect 一次检测运行的公共部分：取样本、归一化、检测、配对
func (s *correlationService) detect(ctx context.Context, userID, activityMetric string) ([]*domain.Sample, time.Time, time.Time, []detector.CorrelationEvent, error) {
	start, end := s.window24h()

	samples, err := s.samplesRepo.GetSamplesByTimeRange(ctx, userID, start, end)
	if err != nil {
		return nil, start, end, nil, fmt.Errorf("failed to fetch samples: %w", err)
	}

	glucose := transformer.GlucosePoints(samples)
	activity := transformer.ActivityPoints(samples, activityMetric)

	spikes := detector.DetectGlucoseSpikes(glucose,
		s.detection.SpikeDeltaMgDl,
		time.Duration(s.detection.SpikeTimeframeMin)*time.Minute)
	dips := detector.DetectActivityDips(activity, start, end,
		s.detection.DipWindowMin,
		s.detection.DipStepsThreshold)
	events := detector.Correlate(spikes, dips)

	return samples, start, end, events, nil
}

// RunCorrelation 运行一次检测并持久化事件批次
func (s *correlationService) RunCorrelation(ctx context.Context, userID, activityMetric string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("user_id is required")
	}
	if activityMetric == "" {
		activityMetric = domain.ActivityMetricStepsPerMin
	}
	if !domain.IsValidActivityMetric(activityMetric) {
		return 0, fmt.Errorf("invalid activity_metric: %s", activityMetric)
	}

	_, start, end, events, err := s.detect(ctx, userID, activityMetric)
	if err != nil {
		return 0, err
	}

	if len(events) == 0 {
		return 0, nil
	}

	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal events: %w", err)
	}

	batch := &domain.CorrelationBatch{
		BatchID:        uuid.New().String(),
		UserID:         userID,
		CreatedAt:      s.nowFn().UTC(),
		WindowStart:    start,
		WindowEnd:      end,
		ActivityMetric: activityMetric,
		Events:         eventsJSON,
	}

	if err := s.eventsRepo.CreateBatch(ctx, batch); err != nil {
		return 0, fmt.Errorf("failed to persist correlation batch: %w", err)
	}

	s.publishBatch(ctx, batch, len(events))

	return len(events), nil
}

// publishBatch 尽力发布批次通知到 Redis Stream，失败只记日志
func (s *correlationService) publishBatch(ctx context.Context, batch *domain.CorrelationBatch, eventCount int) {
	if s.redisClient == nil || s.eventsStream == "" {
		return
	}

	streamID, err := rediscommon.PublishJSONToStream(ctx, s.redisClient, s.eventsStream, map[string]interface{}{
		"batch_id":        batch.BatchID,
		"user_id":         batch.UserID,
		"activity_metric": batch.ActivityMetric,
		"window_start":    batch.WindowStart.Format(time.RFC3339),
		"window_end":      batch.WindowEnd.Format(time.RFC3339),
		"event_count":     eventCount,
	})
	if err != nil {
		s.logger.Warn("Failed to publish correlation batch to stream",
			zap.String("stream", s.eventsStream),
			zap.String("batch_id", batch.BatchID),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("Published correlation batch",
		zap.String("stream", s.eventsStream),
		zap.String("stream_id", streamID),
		zap.String("batch_id", batch.BatchID),
		zap.Int("event_count", eventCount),
	)
}

// Dashboard24h 构建仪表盘：六条序列按类型的纳入规则与检测输入同源
func (s *correlationService) Dashboard24h(ctx context.Context, userID, activityMetric string) (*models.Dashboard24h, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if activityMetric == "" {
		activityMetric = domain.ActivityMetricStepsPerMin
	}
	if !domain.IsValidActivityMetric(activityMetric) {
		return nil, fmt.Errorf("invalid activity_metric: %s", activityMetric)
	}

	samples, start, end, events, err := s.detect(ctx, userID, activityMetric)
	if err != nil {
		return nil, err
	}

	dashboard := &models.Dashboard24h{
		Window: models.TimeWindow{
			Start: start.Format(time.RFC3339),
			End:   end.Format(time.RFC3339),
		},
		Series:       buildSeries(samples),
		Correlations: events,
	}

	return dashboard, nil
}

// buildSeries 样本 -> 序列点。纳入规则与原始仪表盘一致：
// 血糖需要 mg_dl，心率需要 bpm，血压需要两个压力值，
// 步数与运动分钟缺失按 0，心电原样透传。
func buildSeries(samples []*domain.Sample) models.DashboardSeries {
	series := models.DashboardSeries{
		BloodGlucose:    []models.GlucoseSeriesPoint{},
		HeartRate:       []models.HeartRateSeriesPoint{},
		BloodPressure:   []models.BloodPressureSeriesPoint{},
		StepsPerMin:     []models.StepsSeriesPoint{},
		ExerciseMinutes: []models.ExerciseSeriesPoint{},
		ECG:             []models.ECGSeriesPoint{},
	}

	for _, s := range samples {
		t := s.Timestamp.UTC().Format(time.RFC3339)
		switch s.SampleType {
		case domain.MetricBloodGlucose:
			if s.MgDl == nil {
				continue
			}
			series.BloodGlucose = append(series.BloodGlucose, models.GlucoseSeriesPoint{
				T: t, MgDl: *s.MgDl, Source: s.Source,
			})
		case domain.MetricHeartRate:
			if s.Bpm == nil {
				continue
			}
			series.HeartRate = append(series.HeartRate, models.HeartRateSeriesPoint{
				T: t, Bpm: *s.Bpm,
			})
		case domain.MetricBloodPressure:
			if s.SystolicMmhg == nil || s.DiastolicMmhg == nil {
				continue
			}
			series.BloodPressure = append(series.BloodPressure, models.BloodPressureSeriesPoint{
				T: t, SystolicMmhg: *s.SystolicMmhg, DiastolicMmhg: *s.DiastolicMmhg,
			})
		case domain.MetricSteps:
			spm := 0.0
			if s.Spm != nil {
				spm = *s.Spm
			}
			series.StepsPerMin = append(series.StepsPerMin, models.StepsSeriesPoint{T: t, Spm: spm})
		case domain.MetricExerciseMinutes:
			minutes := 0.0
			if s.Minutes != nil {
				minutes = *s.Minutes
			}
			series.ExerciseMinutes = append(series.ExerciseMinutes, models.ExerciseSeriesPoint{T: t, Minutes: minutes})
		case domain.MetricECG:
			series.ECG = append(series.ECG, models.ECGSeriesPoint{
				T: t, AverageBpm: s.AverageBpm, Classification: s.Classification,
			})
		}
	}

	return series
}

// ListRecentBatches 查询最近批次（newest first）
func (s *correlationService) ListRecentBatches(ctx context.Context, userID string, limit int) ([]*domain.CorrelationBatch, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	return s.eventsRepo.ListRecentBatches(ctx, userID, limit)
}
