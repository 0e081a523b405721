package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"vitalsense-data/internal/domain"
	"vitalsense-data/internal/service"

	"go.uber.org/zap"
)

// CorrelationHandler 检测运行与历史批次查询
type CorrelationHandler struct {
	correlation service.CorrelationService
	logger      *zap.Logger
}

func NewCorrelationHandler(correlation service.CorrelationService, logger *zap.Logger) *CorrelationHandler {
	return &CorrelationHandler{correlation: correlation, logger: logger}
}

// POST /api/correlation/run?user_id=&activity_metric=
func (h *CorrelationHandler) RunCorrelation(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusOK, Fail("user_id is required"))
		return
	}
	activityMetric := r.URL.Query().Get("activity_metric")
	if activityMetric == "" {
		activityMetric = domain.ActivityMetricStepsPerMin
	}

	created, err := h.correlation.RunCorrelation(r.Context(), userID, activityMetric)
	if err != nil {
		h.logger.Warn("Correlation run failed",
			zap.String("user_id", userID),
			zap.String("activity_metric", activityMetric),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]int{"events_created": created}))
}

// batchView 批次的响应形态（events 原样透出）
type batchView struct {
	BatchID        string          `json:"batch_id"`
	UserID         string          `json:"user_id"`
	CreatedAt      string          `json:"created_at"`
	WindowStart    string          `json:"window_start"`
	WindowEnd      string          `json:"window_end"`
	ActivityMetric string          `json:"activity_metric"`
	Events         json.RawMessage `json:"events"`
}

// GET /api/correlation/events?user_id=&limit=
func (h *CorrelationHandler) GetRecentEvents(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusOK, Fail("user_id is required"))
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), 20)

	batches, err := h.correlation.ListRecentBatches(r.Context(), userID, limit)
	if err != nil {
		h.logger.Warn("Failed to list correlation batches", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	views := make([]batchView, 0, len(batches))
	for _, b := range batches {
		views = append(views, batchView{
			BatchID:        b.BatchID,
			UserID:         b.UserID,
			CreatedAt:      b.CreatedAt.UTC().Format(time.RFC3339),
			WindowStart:    b.WindowStart.UTC().Format(time.RFC3339),
			WindowEnd:      b.WindowEnd.UTC().Format(time.RFC3339),
			ActivityMetric: b.ActivityMetric,
			Events:         b.Events,
		})
	}

	writeJSON(w, http.StatusOK, Ok(views))
}
