package repository

import (
	"context"

	"altenheim-avatar/internal/domain"
)

// UsageRepository monthly usage counters per facility.
type UsageRepository interface {
	// ListByTenant returns the most recent months first.
	ListByTenant(ctx context.Context, tenantID string, months int) ([]*domain.UsageStats, error)
}
