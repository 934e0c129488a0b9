package httpapi

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HealthCheck is one dependency probe. A failing critical check turns the
// response into 503; other failures only mark the service degraded.
type HealthCheck struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

type HealthHandler struct {
	checks  []HealthCheck
	timeout time.Duration
	logger  *zap.Logger
}

func NewHealthHandler(checks []HealthCheck, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 5 * time.Second, logger: logger}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			h.logger.Warn("Health check failed", zap.String("check", c.Name), zap.Error(err))
			resp.Checks[c.Name] = "error: " + err.Error()
			if c.Critical {
				resp.Status = "down"
				status = http.StatusServiceUnavailable
			} else if resp.Status == "ok" {
				resp.Status = "degraded"
			}
			continue
		}
		resp.Checks[c.Name] = "ok"
	}
	if status != http.StatusOK {
		writeJSON(w, status, Result[healthResponse]{Code: ResultError, Type: "error", Message: "Service degraded, please try again later.", Result: resp})
		return
	}
	writeJSON(w, status, Ok(resp))
}
