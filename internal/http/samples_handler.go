package httpapi

import (
	"net/http"

	"vitalsense-data/internal/service"

	"go.uber.org/zap"
)

// SamplesHandler 样本接入 / 最新体征 / CGM 同步
type SamplesHandler struct {
	samples service.SampleService
	cgmSync service.CGMSyncService
	logger  *zap.Logger
}

// NewSamplesHandler 创建样本 Handler
// cgmSync 为 nil 时 /api/cgm/sync 返回未启用错误
func NewSamplesHandler(samples service.SampleService, cgmSync service.CGMSyncService, logger *zap.Logger) *SamplesHandler {
	return &SamplesHandler{samples: samples, cgmSync: cgmSync, logger: logger}
}

// POST /api/samples
// body: {user_id, storage_mode?, samples:[{type, timestamp, end_time?, data{}}]}
func (h *SamplesHandler) IngestSamples(w http.ResponseWriter, r *http.Request) {
	var req service.IngestRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid request body"))
		return
	}

	inserted, err := h.samples.IngestSamples(r.Context(), &req)
	if err != nil {
		h.logger.Warn("Sample ingest rejected",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]int{"inserted": inserted}))
}

// GET /api/samples/latest?user_id=
func (h *SamplesHandler) GetLatestVitals(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusOK, Fail("user_id is required"))
		return
	}

	vitals, err := h.samples.LatestVitals(r.Context(), userID)
	if err != nil {
		h.logger.Warn("Failed to read latest vitals", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(vitals))
}

// POST /api/cgm/sync?user_id=
func (h *SamplesHandler) SyncCGM(w http.ResponseWriter, r *http.Request) {
	if h.cgmSync == nil {
		writeJSON(w, http.StatusOK, Fail("cgm sync is not enabled"))
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusOK, Fail("user_id is required"))
		return
	}

	result, err := h.cgmSync.SyncUser(r.Context(), userID)
	if err != nil {
		h.logger.Warn("CGM sync failed", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(result))
}
