package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"altenheim-avatar/internal/service"
)

type UsageHandler struct {
	usage  service.UsageService
	logger *zap.Logger
}

func NewUsageHandler(usage service.UsageService, logger *zap.Logger) *UsageHandler {
	return &UsageHandler{usage: usage, logger: logger}
}

// List GET /api/usage
func (h *UsageHandler) List(w http.ResponseWriter, r *http.Request) {
	stats, err := h.usage.List(r.Context(), identity(r))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}
