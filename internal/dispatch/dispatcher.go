package dispatch

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/Ashesh3/teleicu-middleware/internal/models"
)

// Subscriber 一个实时订阅连接（携带目标设备标识）
type Subscriber interface {
	Target() string
	Send(data []byte) error
}

// Source 当前在线订阅者集合
type Source interface {
	Subscribers() []Subscriber
}

// Dispatcher 把一批新观测按订阅者的目标设备过滤后逐个推送。
// 单个订阅者推送失败只记录日志，不影响其他订阅者，也不影响摄入流程。
type Dispatcher struct {
	source Source
	logger *zap.Logger
}

func NewDispatcher(source Source, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{source: source, logger: logger}
}

// Broadcast 向每个订阅者推送与其目标设备匹配的观测子序列；
// 没有匹配观测的订阅者不收到任何消息。
func (d *Dispatcher) Broadcast(batch []models.Observation) {
	if len(batch) == 0 {
		return
	}

	byDevice := make(map[string][]models.Observation)
	for _, obs := range batch {
		byDevice[obs.DeviceID] = append(byDevice[obs.DeviceID], obs)
	}

	encoded := make(map[string][]byte)
	for _, sub := range d.source.Subscribers() {
		filtered, ok := byDevice[sub.Target()]
		if !ok {
			continue
		}

		msg, ok := encoded[sub.Target()]
		if !ok {
			var err error
			msg, err = json.Marshal(filtered)
			if err != nil {
				d.logger.Error("Failed to encode observation batch", zap.Error(err))
				continue
			}
			encoded[sub.Target()] = msg
		}

		if err := sub.Send(msg); err != nil {
			d.logger.Warn("Failed to deliver observations to subscriber",
				zap.String("device_id", sub.Target()),
				zap.Error(err),
			)
		}
	}
}
