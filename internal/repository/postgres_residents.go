package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"altenheim-avatar/internal/domain"
)

type PostgresResidentsRepository struct {
	db *sql.DB
}

func NewPostgresResidentsRepository(db *sql.DB) *PostgresResidentsRepository {
	return &PostgresResidentsRepository{db: db}
}

var _ ResidentsRepository = (*PostgresResidentsRepository)(nil)

const residentColumns = `
	id::text,
	facility_id::text,
	first_name,
	COALESCE(display_name, ''),
	COALESCE(pin, ''),
	address_form,
	language,
	cognitive_level,
	avatar_name,
	created_at,
	active
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResident(s rowScanner) (*domain.Resident, error) {
	var r domain.Resident
	err := s.Scan(
		&r.ResidentID,
		&r.TenantID,
		&r.FirstName,
		&r.DisplayName,
		&r.PINHash,
		&r.AddressForm,
		&r.Language,
		&r.CognitiveLevel,
		&r.AvatarName,
		&r.CreatedAt,
		&r.Active,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *PostgresResidentsRepository) GetResident(ctx context.Context, residentID string) (*domain.Resident, error) {
	query := `SELECT ` + residentColumns + ` FROM residents WHERE id = $1::uuid`
	res, err := scanResident(r.db.QueryRowContext(ctx, query, residentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("resident: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get resident: %w", err)
	}
	return res, nil
}

func (r *PostgresResidentsRepository) ListActiveByTenant(ctx context.Context, tenantID string) ([]*domain.Resident, error) {
	query := `SELECT ` + residentColumns + `
		FROM residents
		WHERE facility_id = $1::uuid AND active = TRUE
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list residents: %w", err)
	}
	defer rows.Close()

	var out []*domain.Resident
	for rows.Next() {
		res, err := scanResident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resident: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate residents: %w", err)
	}
	return out, nil
}

func (r *PostgresResidentsRepository) CreateResident(ctx context.Context, res *domain.Resident) (string, error) {
	query := `
		INSERT INTO residents (facility_id, first_name, display_name, pin, address_form, language, cognitive_level, avatar_name)
		VALUES ($1::uuid, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8)
		RETURNING id::text
	`
	addressForm := res.AddressForm
	if addressForm == "" {
		addressForm = domain.AddressFormDu
	}
	language := res.Language
	if language == "" {
		language = "de"
	}
	level := res.CognitiveLevel
	if level == "" {
		level = domain.CognitiveNormal
	}
	avatar := res.AvatarName
	if avatar == "" {
		avatar = domain.DefaultAvatarName
	}

	var id string
	err := r.db.QueryRowContext(ctx, query,
		res.TenantID, res.FirstName, res.DisplayName, res.PINHash,
		addressForm, language, level, avatar,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create resident: %w", err)
	}
	return id, nil
}
