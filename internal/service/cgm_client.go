package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// CGMReading CGM 厂家云服务返回的单条血糖读数
type CGMReading struct {
	Timestamp time.Time `json:"timestamp"`
	MgDl      float64   `json:"mg_dl"`
	Source    string    `json:"source,omitempty"`
}

// CGMResponse CGM 厂家 API 响应（status != 0 表示厂家侧错误）
type CGMResponse struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

// CGMClient CGM 厂家 API 客户端
type CGMClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewCGMClient 创建 CGM 客户端
func NewCGMClient(baseURL, apiKey string, logger *zap.Logger) *CGMClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("X-API-Key", apiKey)

	return &CGMClient{
		httpClient: client,
		logger:     logger,
	}
}

// GetReadings 拉取时间范围内的血糖读数（Unix 秒）
func (c *CGMClient) GetReadings(ctx context.Context, userID string, startTime, endTime int64) ([]CGMReading, error) {
	request := map[string]any{
		"userId":    userID,
		"startTime": startTime,
		"endTime":   endTime,
	}

	c.logger.Info("Calling CGM API: readings",
		zap.String("user_id", userID),
		zap.Int64("start_time", startTime),
		zap.Int64("end_time", endTime),
	)

	var response CGMResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("/v1/glucose/readings")

	if err != nil {
		c.logger.Error("CGM API call failed",
			zap.Error(err),
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, fmt.Errorf("failed to call CGM API: %w", err)
	}

	if response.Status != 0 {
		c.logger.Error("CGM API returned error",
			zap.Int("status", response.Status),
			zap.String("msg", response.Msg),
		)
		return nil, fmt.Errorf("CGM API error: %s (status: %d)", response.Msg, response.Status)
	}

	var readings []CGMReading
	if err := json.Unmarshal(response.Data, &readings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal readings: %w", err)
	}

	c.logger.Info("Successfully retrieved readings from CGM API",
		zap.Int("reading_count", len(readings)),
	)

	return readings, nil
}
