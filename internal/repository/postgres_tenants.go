package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"altenheim-avatar/internal/domain"
)

// PostgresTenantsRepository facilities table access.
type PostgresTenantsRepository struct {
	db *sql.DB
}

func NewPostgresTenantsRepository(db *sql.DB) *PostgresTenantsRepository {
	return &PostgresTenantsRepository{db: db}
}

var _ TenantsRepository = (*PostgresTenantsRepository)(nil)

func (r *PostgresTenantsRepository) GetActiveBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	query := `
		SELECT
			id::text,
			name,
			slug,
			contact_email,
			max_residents,
			created_at,
			active
		FROM facilities
		WHERE slug = $1 AND active = TRUE
	`

	var t domain.Tenant
	err := r.db.QueryRowContext(ctx, query, slug).Scan(
		&t.TenantID,
		&t.Name,
		&t.Slug,
		&t.ContactEmail,
		&t.MaxResidents,
		&t.CreatedAt,
		&t.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("facility %q: %w", slug, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get facility by slug: %w", err)
	}
	return &t, nil
}

func (r *PostgresTenantsRepository) UpsertTenant(ctx context.Context, tenant *domain.Tenant) (string, error) {
	maxResidents := tenant.MaxResidents
	if maxResidents <= 0 {
		maxResidents = 10
	}
	query := `
		INSERT INTO facilities (name, slug, contact_email, max_residents)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id::text
	`
	var id string
	if err := r.db.QueryRowContext(ctx, query, tenant.Name, tenant.Slug, tenant.ContactEmail, maxResidents).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to upsert facility: %w", err)
	}
	return id, nil
}
