package repository

import (
	"context"

	"altenheim-avatar/internal/domain"
)

// TenantsRepository facility lookups.
type TenantsRepository interface {
	// GetActiveBySlug returns the active facility with the given (normalized) slug.
	GetActiveBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
	// UpsertTenant creates the facility or refreshes its name, keyed by slug. Returns the id.
	UpsertTenant(ctx context.Context, tenant *domain.Tenant) (string, error)
}
