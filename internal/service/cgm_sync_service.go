package service

import (
	"context"
	"fmt"
	"time"

	"vitalsense-data/internal/domain"

	"go.uber.org/zap"
)

// cgmClientInterface CGM 客户端接口（用于测试和扩展）
type cgmClientInterface interface {
	GetReadings(ctx context.Context, userID string, startTime, endTime int64) ([]CGMReading, error)
}

// CGMSyncResult 一次同步的结果
type CGMSyncResult struct {
	Pulled   int `json:"pulled"`
	Inserted int `json:"inserted"`
}

// CGMSyncService 从厂家云拉取血糖读数并走样本接入通道入库
type CGMSyncService interface {
	SyncUser(ctx context.Context, userID string) (*CGMSyncResult, error)
}

type cgmSyncService struct {
	cgmClient cgmClientInterface
	samples   SampleService
	logger    *zap.Logger
	nowFn     func() time.Time
}

// NewCGMSyncService 创建 CGM 同步服务
// cgmClient 为 nil 表示未启用同步（SyncUser 返回错误）
func NewCGMSyncService(cgmClient *CGMClient, samples SampleService, logger *zap.Logger) *cgmSyncService {
	svc := &cgmSyncService{
		samples: samples,
		logger:  logger,
		nowFn:   time.Now,
	}
	if cgmClient != nil {
		svc.cgmClient = cgmClient
	}
	return svc
}

// SetCGMClientForTest 设置 CGM 客户端接口（用于测试）
func (s *cgmSyncService) SetCGMClientForTest(client cgmClientInterface) {
	s.cgmClient = client
}

// SetNowForTest 注入时钟
func (s *cgmSyncService) SetNowForTest(fn func() time.Time) {
	s.nowFn = fn
}

// SyncUser 拉取最近 24 小时读数并入库为 blood_glucose 样本
func (s *cgmSyncService) SyncUser(ctx context.Context, userID string) (*CGMSyncResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if s.cgmClient == nil {
		return nil, fmt.Errorf("cgm sync is not enabled")
	}

	end := s.nowFn().UTC()
	start := end.Add(-CorrelationWindowHours * time.Hour)

	readings, err := s.cgmClient.GetReadings(ctx, userID, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to pull CGM readings: %w", err)
	}

	if len(readings) == 0 {
		return &CGMSyncResult{Pulled: 0, Inserted: 0}, nil
	}

	req := &IngestRequest{
		UserID:      userID,
		StorageMode: domain.StorageModeRaw,
		Samples:     make([]SampleIn, 0, len(readings)),
	}
	for _, r := range readings {
		source := r.Source
		if source == "" {
			source = "cgm"
		}
		req.Samples = append(req.Samples, SampleIn{
			Type:      domain.MetricBloodGlucose,
			Timestamp: r.Timestamp.UTC(),
			Data: map[string]interface{}{
				"mg_dl":  r.MgDl,
				"source": source,
			},
		})
	}

	inserted, err := s.samples.IngestSamples(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to ingest CGM readings: %w", err)
	}

	s.logger.Info("CGM sync finished",
		zap.String("user_id", userID),
		zap.Int("pulled", len(readings)),
		zap.Int("inserted", inserted),
	)

	return &CGMSyncResult{Pulled: len(readings), Inserted: inserted}, nil
}
