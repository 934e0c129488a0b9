package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"altenheim-avatar/internal/domain"
)

type PostgresBiographiesRepository struct {
	db *sql.DB
}

func NewPostgresBiographiesRepository(db *sql.DB) *PostgresBiographiesRepository {
	return &PostgresBiographiesRepository{db: db}
}

var _ BiographiesRepository = (*PostgresBiographiesRepository)(nil)

const biographyColumns = `id::text, resident_id::text, category, key, value, source, created_at`

func scanBiography(s rowScanner, extra ...any) (*domain.Biography, error) {
	var b domain.Biography
	dest := append([]any{&b.BiographyID, &b.ResidentID, &b.Category, &b.Key, &b.Value, &b.Source, &b.CreatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PostgresBiographiesRepository) ListByResident(ctx context.Context, residentID string) ([]*domain.Biography, error) {
	query := `SELECT ` + biographyColumns + `
		FROM biographies
		WHERE resident_id = $1::uuid
		ORDER BY category ASC, key ASC`
	rows, err := r.db.QueryContext(ctx, query, residentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list biographies: %w", err)
	}
	defer rows.Close()

	var out []*domain.Biography
	for rows.Next() {
		b, err := scanBiography(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan biography: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate biographies: %w", err)
	}
	return out, nil
}

func (r *PostgresBiographiesRepository) Upsert(ctx context.Context, b *domain.Biography) (*domain.Biography, error) {
	source := b.Source
	if source == "" {
		source = domain.BioSourceManual
	}
	query := `
		INSERT INTO biographies (resident_id, category, key, value, source)
		VALUES ($1::uuid, $2, $3, $4, $5)
		ON CONFLICT (resident_id, category, key) DO UPDATE SET
			value = EXCLUDED.value,
			source = EXCLUDED.source
		RETURNING ` + biographyColumns
	out, err := scanBiography(r.db.QueryRowContext(ctx, query, b.ResidentID, b.Category, b.Key, b.Value, source))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert biography: %w", err)
	}
	return out, nil
}

func (r *PostgresBiographiesRepository) GetWithTenant(ctx context.Context, biographyID string) (*domain.Biography, string, error) {
	query := `
		SELECT b.id::text, b.resident_id::text, b.category, b.key, b.value, b.source, b.created_at, r.facility_id::text
		FROM biographies b
		JOIN residents r ON r.id = b.resident_id
		WHERE b.id = $1::uuid`
	var tenantID string
	b, err := scanBiography(r.db.QueryRowContext(ctx, query, biographyID), &tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", fmt.Errorf("biography: %w", ErrNotFound)
		}
		return nil, "", fmt.Errorf("failed to get biography: %w", err)
	}
	return b, tenantID, nil
}

func (r *PostgresBiographiesRepository) Update(ctx context.Context, biographyID string, upd BiographyUpdate) (*domain.Biography, error) {
	query := `
		UPDATE biographies SET
			category = COALESCE($2, category),
			key = COALESCE($3, key),
			value = COALESCE($4, value)
		WHERE id = $1::uuid
		RETURNING ` + biographyColumns
	b, err := scanBiography(r.db.QueryRowContext(ctx, query, biographyID, upd.Category, upd.Key, upd.Value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("biography: %w", ErrNotFound)
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("biography key already exists: %w", ErrConflict)
		}
		return nil, fmt.Errorf("failed to update biography: %w", err)
	}
	return b, nil
}

func (r *PostgresBiographiesRepository) Delete(ctx context.Context, biographyID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM biographies WHERE id = $1::uuid`, biographyID)
	if err != nil {
		return fmt.Errorf("failed to delete biography: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete biography: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("biography: %w", ErrNotFound)
	}
	return nil
}
