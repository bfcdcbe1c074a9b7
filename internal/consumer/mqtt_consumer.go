package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Ashesh3/teleicu-middleware/internal/config"
	"github.com/Ashesh3/teleicu-middleware/internal/mqtt"
	"github.com/Ashesh3/teleicu-middleware/internal/service"
)

// MQTTConsumer 设备经 Broker 推送观测的接入通道，
// 与 HTTP 摄入端点共用同一个 IngestService。
type MQTTConsumer struct {
	config     *config.Config
	mqttClient *mqtt.Client
	ingest     *service.IngestService
	logger     *zap.Logger
}

// NewMQTTConsumer 创建MQTT消费者
func NewMQTTConsumer(
	cfg *config.Config,
	mqttClient *mqtt.Client,
	ingest *service.IngestService,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		config:     cfg,
		mqttClient: mqttClient,
		ingest:     ingest,
		logger:     logger,
	}
}

// Start 启动消费者
func (c *MQTTConsumer) Start(ctx context.Context) error {
	topic := c.config.MQTT.Topic
	if topic == "" {
		return fmt.Errorf("observations MQTT topic not configured")
	}

	if err := c.mqttClient.Subscribe(topic, c.config.MQTT.QoS, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to observations topic: %w", err)
	}

	c.logger.Info("MQTT consumer started", zap.String("topic", topic))

	<-ctx.Done()
	return nil
}

// Stop 停止消费者
func (c *MQTTConsumer) Stop(ctx context.Context) error {
	topic := c.config.MQTT.Topic
	if topic != "" {
		if err := c.mqttClient.Unsubscribe(topic); err != nil {
			c.logger.Error("Failed to unsubscribe", zap.Error(err))
		}
	}

	c.logger.Info("MQTT consumer stopped")
	return nil
}

// handleMessage 处理MQTT消息：载荷格式与 HTTP 摄入端点一致
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	if _, err := c.ingest.Ingest(json.RawMessage(payload)); err != nil {
		// 丢弃坏消息，不让单条消息影响通道
		c.logger.Warn("Dropping malformed observation message",
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
	return nil
}
