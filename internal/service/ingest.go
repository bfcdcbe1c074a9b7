package service

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/Ashesh3/teleicu-middleware/internal/dispatch"
	"github.com/Ashesh3/teleicu-middleware/internal/models"
	"github.com/Ashesh3/teleicu-middleware/internal/observation"
	"github.com/Ashesh3/teleicu-middleware/internal/store"
)

// SyncTrigger 摄入完成后触发上游同步尝试
type SyncTrigger interface {
	Trigger()
}

// IngestService 观测摄入服务：展平 -> 最新快照索引 -> 实时推送 ->
// 窗口存储 -> 触发上游同步。整条路径无外部调用，
// 对存储/索引的读取方呈原子可见。
type IngestService struct {
	store      *store.ObservationStore
	latest     *store.LatestVitals
	requestLog *store.RequestLog
	dispatcher *dispatch.Dispatcher
	scheduler  SyncTrigger
	logger     *zap.Logger
}

func NewIngestService(
	observationStore *store.ObservationStore,
	latest *store.LatestVitals,
	requestLog *store.RequestLog,
	dispatcher *dispatch.Dispatcher,
	scheduler SyncTrigger,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		store:      observationStore,
		latest:     latest,
		requestLog: requestLog,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		logger:     logger,
	}
}

// Ingest 处理一次设备推送。载荷无效时返回 observation.ErrInvalidPayload，
// 此时存储与索引均未被修改（诊断日志仍会记录原始载荷）。
func (s *IngestService) Ingest(raw json.RawMessage) ([]models.Observation, error) {
	s.requestLog.Add(raw)

	if err := observation.ValidatePayload(raw); err != nil {
		return nil, err
	}

	batch, err := observation.Flatten(raw)
	if err != nil {
		return nil, err
	}

	s.latest.Set(batch)
	s.dispatcher.Broadcast(batch)
	for _, obs := range batch {
		s.store.Record(obs)
	}

	s.logger.Debug("Ingested observation batch", zap.Int("count", len(batch)))

	s.scheduler.Trigger()
	return batch, nil
}
