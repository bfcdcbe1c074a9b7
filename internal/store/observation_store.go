package store

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Ashesh3/teleicu-middleware/internal/models"
)

// ObservationStore 维护每个设备、每个观测类型的有界历史窗口。
// 设备按 device_id 索引；超出容量时按 last_updated 淘汰最久未更新的设备。
type ObservationStore struct {
	mu         sync.RWMutex
	buffers    map[string]*models.DeviceBuffer
	windowSize int
	maxDevices int // 0 = 不限制
	logger     *zap.Logger
	now        func() time.Time
}

func NewObservationStore(windowSize, maxDevices int, logger *zap.Logger) *ObservationStore {
	if windowSize <= 0 {
		windowSize = 10
	}
	return &ObservationStore{
		buffers:    make(map[string]*models.DeviceBuffer),
		windowSize: windowSize,
		maxDevices: maxDevices,
		logger:     logger,
		now:        time.Now,
	}
}

// Record 写入一条观测：追加到该设备该类型的窗口并截断到最近 windowSize 条，
// 同时把 last_updated 推进到当前时间（与观测自身时间戳无关）。
func (s *ObservationStore) Record(obs models.Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Debug("Recording observation",
		zap.String("device_id", obs.DeviceID),
		zap.String("observation_id", obs.ObservationID),
		zap.String("date_time", obs.DateTime),
	)

	buf, ok := s.buffers[obs.DeviceID]
	if !ok {
		s.evictLocked()
		buf = &models.DeviceBuffer{
			DeviceID:     obs.DeviceID,
			Observations: make(map[string][]models.Observation),
		}
		s.buffers[obs.DeviceID] = buf
	}

	window := append(buf.Observations[obs.ObservationID], obs)
	if len(window) > s.windowSize {
		window = window[len(window)-s.windowSize:]
	}
	buf.Observations[obs.ObservationID] = window
	buf.LastUpdated = s.now()
}

// evictLocked 在新设备接入前保证容量：淘汰 last_updated 最旧的设备
func (s *ObservationStore) evictLocked() {
	if s.maxDevices <= 0 || len(s.buffers) < s.maxDevices {
		return
	}
	var oldestID string
	var oldest time.Time
	for id, buf := range s.buffers {
		if oldestID == "" || buf.LastUpdated.Before(oldest) {
			oldestID = id
			oldest = buf.LastUpdated
		}
	}
	if oldestID != "" {
		delete(s.buffers, oldestID)
		s.logger.Warn("Evicted device buffer (capacity reached)",
			zap.String("device_id", oldestID),
			zap.Int("max_devices", s.maxDevices),
		)
	}
}

// SnapshotAll 返回所有设备缓冲的某一时刻一致视图（深拷贝窗口切片）
func (s *ObservationStore) SnapshotAll() []models.DeviceBuffer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.DeviceBuffer, 0, len(s.buffers))
	for _, buf := range s.buffers {
		out = append(out, copyBuffer(buf))
	}
	return out
}

// Query 按设备标识查询窗口；空标识返回全部缓冲
func (s *ObservationStore) Query(deviceID string) ([]models.DeviceBuffer, bool) {
	if deviceID == "" {
		return s.SnapshotAll(), true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	buf, ok := s.buffers[deviceID]
	if !ok {
		return nil, false
	}
	return []models.DeviceBuffer{copyBuffer(buf)}, true
}

func copyBuffer(buf *models.DeviceBuffer) models.DeviceBuffer {
	observations := make(map[string][]models.Observation, len(buf.Observations))
	for id, window := range buf.Observations {
		observations[id] = append([]models.Observation(nil), window...)
	}
	return models.DeviceBuffer{
		DeviceID:     buf.DeviceID,
		Observations: observations,
		LastUpdated:  buf.LastUpdated,
	}
}
