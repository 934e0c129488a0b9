package repository

import (
	"context"

	"altenheim-avatar/internal/domain"
)

// ResidentsRepository persons in care.
type ResidentsRepository interface {
	// GetResident looks a resident up by id without tenant scoping.
	// Callers apply the tenant check themselves so that "missing" and "foreign" stay distinguishable.
	GetResident(ctx context.Context, residentID string) (*domain.Resident, error)
	// ListActiveByTenant returns the active residents of a tenant in a stable order.
	ListActiveByTenant(ctx context.Context, tenantID string) ([]*domain.Resident, error)
	CreateResident(ctx context.Context, resident *domain.Resident) (string, error)
}
