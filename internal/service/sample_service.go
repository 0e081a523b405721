package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vitalsense-data/internal/domain"
	"vitalsense-data/internal/repository"
	"vitalsense-data/internal/store"

	"go.uber.org/zap"
)

// FutureTimestampTolerance 样本时间戳允许超前的上限。
// 超过 now+5m 的样本视为前置条件违反，在进入检测引擎/存储之前整批拒绝。
const FutureTimestampTolerance = 5 * time.Minute

// SampleIn 单条样本的接入形态（HTTP 与 MQTT 共用）
type SampleIn struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	EndTime   *time.Time             `json:"end_time,omitempty"`
	Data      map[string]interface{} `json:"data"`
}

// IngestRequest 样本批量接入请求
type IngestRequest struct {
	UserID      string     `json:"user_id"`
	StorageMode string     `json:"storage_mode,omitempty"`
	Samples     []SampleIn `json:"samples"`
}

// SampleService 样本接入与最新体征查询
type SampleService interface {
	// IngestSamples 批量接入样本，返回写入条数
	IngestSamples(ctx context.Context, req *IngestRequest) (int, error)

	// LatestVitals 读取某用户各指标的最新缓存样本
	LatestVitals(ctx context.Context, userID string) (map[string]json.RawMessage, error)
}

type sampleService struct {
	samplesRepo repository.SamplesRepository
	kv          store.KV
	latestTTL   time.Duration
	logger      *zap.Logger
	nowFn       func() time.Time
}

// NewSampleService 创建样本接入服务
// kv 为 nil 时跳过最新体征缓存（纯入库模式）
func NewSampleService(samplesRepo repository.SamplesRepository, kv store.KV, latestTTL time.Duration, logger *zap.Logger) *sampleService {
	return &sampleService{
		samplesRepo: samplesRepo,
		kv:          kv,
		latestTTL:   latestTTL,
		logger:      logger,
		nowFn:       time.Now,
	}
}

// SetNowForTest 注入时钟（用于测试未来时间戳校验）
func (s *sampleService) SetNowForTest(fn func() time.Time) {
	s.nowFn = fn
}

// IngestSamples 批量接入样本
// local_only 直接短路返回 0；任一样本时间戳超前 now+5m 时整批拒绝，不产生部分写入。
func (s *sampleService) IngestSamples(ctx context.Context, req *IngestRequest) (int, error) {
	if req == nil || req.UserID == "" {
		return 0, fmt.Errorf("user_id is required")
	}

	storageMode := req.StorageMode
	if storageMode == "" {
		storageMode = domain.StorageModeRaw
	}
	if !domain.IsValidStorageMode(storageMode) {
		return 0, fmt.Errorf("invalid storage_mode: %s", storageMode)
	}
	if storageMode == domain.StorageModeLocalOnly {
		return 0, nil
	}

	now := s.nowFn().UTC()
	samples := make([]*domain.Sample, 0, len(req.Samples))
	for _, in := range req.Samples {
		if !domain.IsValidMetricType(in.Type) {
			return 0, fmt.Errorf("invalid sample type: %s", in.Type)
		}

		t := in.Timestamp.UTC()
		if t.After(now.Add(FutureTimestampTolerance)) {
			return 0, fmt.Errorf("sample timestamp is in the future")
		}

		sample := &domain.Sample{
			UserID:     req.UserID,
			SampleType: in.Type,
			Timestamp:  t,
			CreatedAt:  now,
			Data:       in.Data,
		}
		if in.EndTime != nil {
			et := in.EndTime.UTC()
			sample.EndTime = &et
		}
		extractFields(sample)

		samples = append(samples, sample)
	}

	if len(samples) == 0 {
		return 0, nil
	}

	inserted, err := s.samplesRepo.InsertSamples(ctx, storageMode, samples)
	if err != nil {
		return 0, fmt.Errorf("failed to store samples: %w", err)
	}

	s.updateLatestVitals(ctx, req.UserID, samples)

	return inserted, nil
}

// extractFields 按类型填充便捷提取列（查询/绘图用）
func extractFields(s *domain.Sample) {
	switch s.SampleType {
	case domain.MetricBloodGlucose:
		s.MgDl = dataFloat(s.Data, "mg_dl")
		s.Source = dataString(s.Data, "source")
	case domain.MetricHeartRate:
		s.Bpm = dataFloat(s.Data, "bpm")
	case domain.MetricBloodPressure:
		s.SystolicMmhg = dataFloat(s.Data, "systolic_mmhg")
		s.DiastolicMmhg = dataFloat(s.Data, "diastolic_mmhg")
	case domain.MetricSteps:
		// 显式 spm 优先，否则由 steps/interval_minutes 归一（间隔默认 1 分钟）
		if spm := dataFloat(s.Data, "spm"); spm != nil {
			s.Spm = spm
		} else {
			interval := 1.0
			if v := dataFloat(s.Data, "interval_minutes"); v != nil && *v > 0 {
				interval = *v
			}
			steps := 0.0
			if v := dataFloat(s.Data, "steps"); v != nil {
				steps = *v
			}
			normalized := steps / interval
			s.Spm = &normalized
		}
	case domain.MetricExerciseMinutes:
		s.Minutes = dataFloat(s.Data, "minutes")
	case domain.MetricECG:
		s.AverageBpm = dataFloat(s.Data, "average_bpm")
		s.Classification = dataString(s.Data, "classification")
	}
}

// updateLatestVitals 尽力更新最新体征缓存，单条失败不影响接入结果
func (s *sampleService) updateLatestVitals(ctx context.Context, userID string, samples []*domain.Sample) {
	if s.kv == nil {
		return
	}

	// 同指标取批内最新一条
	latest := map[string]*domain.Sample{}
	for _, sample := range samples {
		cur, ok := latest[sample.SampleType]
		if !ok || sample.Timestamp.After(cur.Timestamp) {
			latest[sample.SampleType] = sample
		}
	}

	for metric, sample := range latest {
		payload, err := json.Marshal(map[string]interface{}{
			"type":      sample.SampleType,
			"timestamp": sample.Timestamp.Format(time.RFC3339),
			"data":      sample.Data,
		})
		if err != nil {
			continue
		}
		key := store.LatestVitalKey(userID, metric)
		if err := s.kv.Set(ctx, key, string(payload), s.latestTTL); err != nil {
			s.logger.Warn("Failed to update latest vitals cache",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
}

// LatestVitals 扫描该用户的最新体征缓存，返回 metric -> 缓存 JSON
func (s *sampleService) LatestVitals(ctx context.Context, userID string) (map[string]json.RawMessage, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if s.kv == nil {
		return map[string]json.RawMessage{}, nil
	}

	keys, err := s.kv.ScanKeys(ctx, store.LatestVitalPattern(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to scan latest vitals: %w", err)
	}

	result := make(map[string]json.RawMessage, len(keys))
	prefix := store.LatestVitalKey(userID, "")
	for _, key := range keys {
		raw, err := s.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		metric := key[len(prefix):]
		result[metric] = json.RawMessage(raw)
	}

	return result, nil
}

// dataFloat 从 data 对象取数值字段（JSON 反序列化后数值统一是 float64，
// 但 MQTT/测试来源可能是整数或字符串）
func dataFloat(data map[string]interface{}, key string) *float64 {
	if data == nil {
		return nil
	}
	switch v := data[key].(type) {
	case float64:
		f := v
		return &f
	case float32:
		f := float64(v)
		return &f
	case int:
		f := float64(v)
		return &f
	case int64:
		f := float64(v)
		return &f
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return &f
		}
		return nil
	default:
		return nil
	}
}

func dataString(data map[string]interface{}, key string) string {
	if data == nil {
		return ""
	}
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
