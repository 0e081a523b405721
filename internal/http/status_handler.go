package httpapi

import (
	"net/http"
	"time"

	"vitalsense-data/internal/domain"
	"vitalsense-data/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatusHandler 客户端健康检查（对应 status_checks 表）
type StatusHandler struct {
	statusRepo repository.StatusRepository
	logger     *zap.Logger
	nowFn      func() time.Time
}

func NewStatusHandler(statusRepo repository.StatusRepository, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		statusRepo: statusRepo,
		logger:     logger,
		nowFn:      time.Now,
	}
}

// SetNowForTest 测试用：固定当前时间
func (h *StatusHandler) SetNowForTest(now func() time.Time) {
	h.nowFn = now
}

// POST /api/status
// body: {client_name}
func (h *StatusHandler) CreateStatusCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientName string `json:"client_name"`
	}
	if err := readBodyJSON(r, 1<<16, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid request body"))
		return
	}
	if req.ClientName == "" {
		writeJSON(w, http.StatusOK, Fail("client_name is required"))
		return
	}

	check := &domain.StatusCheck{
		ID:         uuid.New().String(),
		ClientName: req.ClientName,
		Timestamp:  h.nowFn().UTC(),
	}
	if err := h.statusRepo.CreateStatusCheck(r.Context(), check); err != nil {
		h.logger.Error("Failed to create status check",
			zap.String("client_name", req.ClientName),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail("failed to create status check"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(check))
}

// GET /api/status?limit=
func (h *StatusHandler) ListStatusChecks(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 1000)

	checks, err := h.statusRepo.ListStatusChecks(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list status checks", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to list status checks"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(checks))
}
