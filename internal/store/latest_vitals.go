package store

import (
	"errors"
	"sync"

	"github.com/Ashesh3/teleicu-middleware/internal/models"
)

// ErrNotFound 设备从未上报过观测
var ErrNotFound = errors.New("device not found")

// LatestVitals 每设备最新观测快照索引（按观测类型覆盖写入），
// 与窗口存储的历史语义完全解耦。
type LatestVitals struct {
	mu   sync.RWMutex
	data map[string]map[string]models.Observation
}

func NewLatestVitals() *LatestVitals {
	return &LatestVitals{data: make(map[string]map[string]models.Observation)}
}

// Set 按批次顺序覆盖写入：批次内后写者胜，跨批次同理
func (l *LatestVitals) Set(batch []models.Observation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, obs := range batch {
		vitals, ok := l.data[obs.DeviceID]
		if !ok {
			vitals = make(map[string]models.Observation)
			l.data[obs.DeviceID] = vitals
		}
		vitals[obs.ObservationID] = obs
	}
}

// Get 返回设备的最新观测快照；未知设备返回 ErrNotFound（区别于空映射）
func (l *LatestVitals) Get(deviceID string) (map[string]models.Observation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	vitals, ok := l.data[deviceID]
	if !ok {
		return nil, ErrNotFound
	}

	out := make(map[string]models.Observation, len(vitals))
	for id, obs := range vitals {
		out[id] = obs
	}
	return out, nil
}
