package repository

import (
	"context"

	"altenheim-avatar/internal/domain"
)

// BiographyUpdate carries the fields to change; nil leaves a field as is.
type BiographyUpdate struct {
	Category *string
	Key      *string
	Value    *string
}

// BiographiesRepository biographical facts of residents.
type BiographiesRepository interface {
	// ListByResident returns the facts ordered by category, then key.
	ListByResident(ctx context.Context, residentID string) ([]*domain.Biography, error)
	// Upsert inserts a fact or replaces value and source on (resident, category, key).
	Upsert(ctx context.Context, b *domain.Biography) (*domain.Biography, error)
	// GetWithTenant returns a fact and the tenant of the resident it belongs to.
	GetWithTenant(ctx context.Context, biographyID string) (*domain.Biography, string, error)
	Update(ctx context.Context, biographyID string, upd BiographyUpdate) (*domain.Biography, error)
	Delete(ctx context.Context, biographyID string) error
}
