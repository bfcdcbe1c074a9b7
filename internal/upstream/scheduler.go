package upstream

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ashesh3/teleicu-middleware/internal/models"
)

// 温度观测 date-time 的设备侧固定格式
const temperatureTimeLayout = "2006-01-02 15:04:05"

// DeviceDirectory 设备目录依赖（device -> asset -> patient）
type DeviceDirectory interface {
	GetAsset(ctx context.Context, deviceID string) (*models.Asset, error)
	GetPatientContext(ctx context.Context, externalID string) (*models.PatientContext, error)
	AuthHeaders(externalID string) (map[string]string, error)
}

// CareSink 上游临床记录接收端
type CareSink interface {
	SubmitDailyRound(ctx context.Context, consultationID string, payload models.DailyRoundPayload, headers map[string]string) error
}

// BufferSource 窗口存储的快照读取
type BufferSource interface {
	SnapshotAll() []models.DeviceBuffer
}

// Scheduler 限流的上游同步调度器。
// 每次摄入后被触发；闸门放行时在后台跑一轮：遍历存储快照，
// 逐设备解析患者上下文、派生巡房载荷并提交，单设备失败不影响其余设备。
type Scheduler struct {
	store       BufferSource
	directory   DeviceDirectory
	sink        CareSink
	gate        GatePolicy
	staleAfter  time.Duration
	callTimeout time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

func NewScheduler(
	store BufferSource,
	directory DeviceDirectory,
	sink CareSink,
	gate GatePolicy,
	staleAfter time.Duration,
	callTimeout time.Duration,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		store:       store,
		directory:   directory,
		sink:        sink,
		gate:        gate,
		staleAfter:  staleAfter,
		callTimeout: callTimeout,
		logger:      logger,
		now:         time.Now,
	}
}

// Trigger 触发一次同步尝试；闸门不放行时立即返回。
// 放行时轮次在后台 goroutine 执行，不阻塞摄入路径。
func (s *Scheduler) Trigger() {
	now := s.now()
	if !s.gate.AcquirePass(now) {
		return
	}
	go s.runPass(context.Background(), now)
}

// RunPassNow 同步执行一轮（绕过 goroutine，便于测试与关停前冲刷）
func (s *Scheduler) RunPassNow() {
	now := s.now()
	if !s.gate.AcquirePass(now) {
		return
	}
	s.runPass(context.Background(), now)
}

func (s *Scheduler) runPass(ctx context.Context, now time.Time) {
	defer s.gate.ReleasePass()

	passID := uuid.NewString()
	snapshot := s.store.SnapshotAll()
	s.logger.Info("Starting upstream sync pass",
		zap.String("pass_id", passID),
		zap.Int("devices", len(snapshot)),
	)

	for _, buf := range snapshot {
		if now.Sub(buf.LastUpdated) > s.staleAfter {
			continue
		}
		if !s.gate.AdmitDevice(buf.DeviceID, now) {
			continue
		}
		if err := s.syncDevice(ctx, buf); err != nil {
			// 单设备失败只记录，继续处理下一个设备
			s.logger.Error("Failed to sync device observations upstream",
				zap.String("pass_id", passID),
				zap.String("device_id", buf.DeviceID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Upstream sync pass finished", zap.String("pass_id", passID))
}

func (s *Scheduler) syncDevice(ctx context.Context, buf models.DeviceBuffer) error {
	assetCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	asset, err := s.directory.GetAsset(assetCtx, buf.DeviceID)
	cancel()
	if err != nil {
		return fmt.Errorf("asset lookup: %w", err)
	}
	if asset == nil {
		s.logger.Debug("Device has no asset, skipping", zap.String("device_id", buf.DeviceID))
		return nil
	}

	patientCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	pc, err := s.directory.GetPatientContext(patientCtx, asset.ExternalID)
	cancel()
	if err != nil {
		return fmt.Errorf("patient lookup: %w", err)
	}
	if pc == nil || pc.PatientID == "" {
		s.logger.Debug("Asset has no patient, skipping", zap.String("device_id", buf.DeviceID))
		return nil
	}

	headers, err := s.directory.AuthHeaders(asset.ExternalID)
	if err != nil {
		return fmt.Errorf("auth headers: %w", err)
	}

	payload := BuildDailyRound(buf)

	submitCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	if err := s.sink.SubmitDailyRound(submitCtx, pc.ConsultationID, payload, headers); err != nil {
		return fmt.Errorf("daily round submission: %w", err)
	}

	s.logger.Info("Synced device observations upstream",
		zap.String("device_id", buf.DeviceID),
		zap.String("consultation_id", pc.ConsultationID),
	)
	return nil
}

// BuildDailyRound 从设备窗口的最新条目派生巡房载荷
func BuildDailyRound(buf models.DeviceBuffer) models.DailyRoundPayload {
	spo2 := latest(buf, models.ObservationSpO2)

	payload := models.DailyRoundPayload{
		TakenAt:    buf.LastUpdated,
		RoundsType: "NORMAL",
		SpO2:       finalValue(spo2),
		Resp:       finalValue(latest(buf, models.ObservationRespRate)),
		Pulse:      finalValue(latest(buf, models.ObservationHeartRate)),
	}

	// 上游约定：血压子字段随 SpO2 通道上报
	if spo2 != nil && spo2.Status == models.StatusFinal {
		payload.BP = &models.BloodPressure{
			Systolic:  nestedValue(spo2.Systolic),
			Diastolic: nestedValue(spo2.Diastolic),
		}
	}

	temp := latest(buf, models.ObservationTemperature)
	if tv := finalValue(temp); tv != nil {
		if outOfLimits(temp, *tv) {
			// 超出设备自报的量程视为无效读数
			payload.Temperature = nil
			payload.TemperatureMeasuredAt = nil
		} else {
			payload.Temperature = tv
			payload.TemperatureMeasuredAt = parseMeasuredAt(temp.DateTime)
		}
	}

	return payload
}

func latest(buf models.DeviceBuffer, observationID string) *models.Observation {
	window := buf.Observations[observationID]
	if len(window) == 0 {
		return nil
	}
	return &window[len(window)-1]
}

func finalValue(obs *models.Observation) *float64 {
	if obs == nil || obs.Status != models.StatusFinal {
		return nil
	}
	return obs.Value
}

func nestedValue(nv *models.NestedValue) *float64 {
	if nv == nil {
		return nil
	}
	return nv.Value
}

func outOfLimits(obs *models.Observation, value float64) bool {
	if obs.LowLimit != nil && value < *obs.LowLimit {
		return true
	}
	if obs.HighLimit != nil && *obs.HighLimit < value {
		return true
	}
	return false
}

func parseMeasuredAt(raw string) *string {
	if raw == "" {
		return nil
	}
	t, err := time.ParseInLocation(temperatureTimeLayout, raw, time.UTC)
	if err != nil {
		t, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil
		}
	}
	iso := t.UTC().Format(time.RFC3339)
	return &iso
}
