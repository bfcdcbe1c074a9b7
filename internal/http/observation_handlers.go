package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Ashesh3/teleicu-middleware/internal/observation"
	"github.com/Ashesh3/teleicu-middleware/internal/service"
	"github.com/Ashesh3/teleicu-middleware/internal/store"
)

// ObservationHandler 设备观测相关端点
type ObservationHandler struct {
	ingest     *service.IngestService
	store      *store.ObservationStore
	latest     *store.LatestVitals
	requestLog *store.RequestLog
	logger     *zap.Logger
}

func NewObservationHandler(
	ingest *service.IngestService,
	observationStore *store.ObservationStore,
	latest *store.LatestVitals,
	requestLog *store.RequestLog,
	logger *zap.Logger,
) *ObservationHandler {
	return &ObservationHandler{
		ingest:     ingest,
		store:      observationStore,
		latest:     latest,
		requestLog: requestLog,
		logger:     logger,
	}
}

// POST /update_observations
// 成功时原样回显请求体
func (h *ObservationHandler) UpdateObservations(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if _, err := h.ingest.Ingest(body); err != nil {
		if errors.Is(err, observation.ErrInvalidPayload) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Observation ingestion failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeRaw(w, http.StatusOK, body)
}

// GET /get_observations?ip=
// 无过滤参数返回全部设备缓冲；带参数返回该设备的窗口（未知设备返回空数组）
func (h *ObservationHandler) GetObservations(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("ip")

	buffers, ok := h.store.Query(deviceID)
	if !ok {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, buffers)
}

// GET /log_data
func (h *ObservationHandler) GetLogData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.requestLog.Entries())
}

// GET /last_request_data
func (h *ObservationHandler) GetLastRequestData(w http.ResponseWriter, r *http.Request) {
	writeRaw(w, http.StatusOK, h.requestLog.LastRequest())
}

// GET /get_time
func (h *ObservationHandler) GetTime(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"time": time.Now().UTC().Format(time.RFC3339),
	})
}

// GET /vitals?device_id=
func (h *ObservationHandler) GetLatestVitals(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")

	vitals, err := h.latest.Get(deviceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No data found with device id "+deviceID)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data":   vitals,
	})
}

// GET /health
func (h *ObservationHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
