package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const anthropicVersion = "2023-06-01"

// HealthChecker probes whether the model provider is reachable.
type HealthChecker struct {
	httpClient *resty.Client
	apiKey     string
	logger     *zap.Logger
}

func NewHealthChecker(baseURL, apiKey string, logger *zap.Logger) *HealthChecker {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("anthropic-version", anthropicVersion)

	return &HealthChecker{httpClient: client, apiKey: apiKey, logger: logger}
}

// Check lists models with the configured key. Transport failures, server errors and
// rejected credentials count as unreachable.
func (h *HealthChecker) Check(ctx context.Context) error {
	resp, err := h.httpClient.R().
		SetContext(ctx).
		SetHeader("x-api-key", h.apiKey).
		SetQueryParam("limit", "1").
		Get("/v1/models")
	if err != nil {
		h.logger.Warn("model provider unreachable", zap.Error(err))
		return fmt.Errorf("model provider unreachable: %w", err)
	}
	switch {
	case resp.StatusCode() == 401 || resp.StatusCode() == 403:
		return fmt.Errorf("model provider rejected credentials (status %d)", resp.StatusCode())
	case resp.StatusCode() >= 500:
		return fmt.Errorf("model provider unavailable (status %d)", resp.StatusCode())
	}
	return nil
}
