package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"vitalsense-data/internal/domain"
	"vitalsense-data/internal/service"

	"go.uber.org/zap"
)

// DashboardHandler 24h 仪表盘（JSON + Excel 导出）
type DashboardHandler struct {
	correlation service.CorrelationService
	logger      *zap.Logger
}

func NewDashboardHandler(correlation service.CorrelationService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{correlation: correlation, logger: logger}
}

// GET /api/dashboard/24h?user_id=&activity_metric=
func (h *DashboardHandler) GetDashboard24h(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusOK, Fail("user_id is required"))
		return
	}
	activityMetric := r.URL.Query().Get("activity_metric")
	if activityMetric == "" {
		activityMetric = domain.ActivityMetricStepsPerMin
	}

	dashboard, err := h.correlation.Dashboard24h(r.Context(), userID, activityMetric)
	if err != nil {
		h.logger.Warn("Dashboard build failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(dashboard))
}

// GET /api/dashboard/24h/export?user_id=&activity_metric=
// 返回 xlsx 附件（Samples + Correlations 两个工作表）
func (h *DashboardHandler) ExportDashboard24h(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusOK, Fail("user_id is required"))
		return
	}
	activityMetric := r.URL.Query().Get("activity_metric")
	if activityMetric == "" {
		activityMetric = domain.ActivityMetricStepsPerMin
	}

	dashboard, err := h.correlation.Dashboard24h(r.Context(), userID, activityMetric)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	data, err := GenerateDashboardExport(dashboard)
	if err != nil {
		h.logger.Error("Dashboard export failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail("failed to generate export"))
		return
	}

	filename := fmt.Sprintf("dashboard_24h_%s_%s.xlsx", userID, time.Now().UTC().Format("20060102T150405Z"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = bytes.NewReader(data).WriteTo(w)
}
