// Package consumer 消费穿戴设备通过 MQTT 上报的样本批次。
// 主题形如 vitalsense/{user_id}/samples，负载与 HTTP 接入的请求体一致。
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mqttcommon "vitalsense-data/internal/common/mqtt"
	"vitalsense-data/internal/service"

	"go.uber.org/zap"
)

// MQTTConsumer 订阅样本上报主题并走统一接入通道入库
type MQTTConsumer struct {
	client  *mqttcommon.Client
	samples service.SampleService
	topic   string
	logger  *zap.Logger
}

func NewMQTTConsumer(client *mqttcommon.Client, samples service.SampleService, topic string, logger *zap.Logger) *MQTTConsumer {
	return &MQTTConsumer{
		client:  client,
		samples: samples,
		topic:   topic,
		logger:  logger,
	}
}

// Start 订阅主题（QoS 1）
func (c *MQTTConsumer) Start() error {
	if err := c.client.Subscribe(c.topic, 1, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to sample topic: %w", err)
	}
	c.logger.Info("MQTT sample consumer started", zap.String("topic", c.topic))
	return nil
}

// Stop 取消订阅（连接的关闭由调用方负责）
func (c *MQTTConsumer) Stop() {
	if err := c.client.Unsubscribe(c.topic); err != nil {
		c.logger.Warn("Failed to unsubscribe sample topic", zap.String("topic", c.topic), zap.Error(err))
	}
	c.logger.Info("MQTT sample consumer stopped")
}

// handleMessage 解析并接入一个样本批次
// 负载缺少 user_id 时从主题第二段取；畸形消息丢弃并记日志，不中断订阅
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	var req service.IngestRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.logger.Warn("Dropping malformed MQTT sample payload",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return nil
	}

	if req.UserID == "" {
		req.UserID = userIDFromTopic(topic)
	}

	inserted, err := c.samples.IngestSamples(context.Background(), &req)
	if err != nil {
		c.logger.Warn("MQTT sample batch rejected",
			zap.String("topic", topic),
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		return nil
	}

	c.logger.Debug("MQTT sample batch ingested",
		zap.String("user_id", req.UserID),
		zap.Int("inserted", inserted),
	)
	return nil
}

// userIDFromTopic vitalsense/{user_id}/samples -> user_id
func userIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[1]
}
