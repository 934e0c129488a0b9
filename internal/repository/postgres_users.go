package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"altenheim-avatar/internal/domain"
)

type PostgresUsersRepository struct {
	db *sql.DB
}

func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

func (r *PostgresUsersRepository) GetActiveByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT
			id::text,
			facility_id::text,
			email,
			password_hash,
			name,
			role,
			active
		FROM users
		WHERE email = $1 AND active = TRUE
	`
	var u domain.User
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&u.UserID,
		&u.TenantID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.Role,
		&u.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &u, nil
}

func (r *PostgresUsersRepository) UpsertUser(ctx context.Context, user *domain.User) (string, error) {
	query := `
		INSERT INTO users (facility_id, email, password_hash, name, role)
		VALUES ($1::uuid, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			name = EXCLUDED.name,
			role = EXCLUDED.role
		RETURNING id::text
	`
	var id string
	err := r.db.QueryRowContext(ctx, query, user.TenantID, user.Email, user.PasswordHash, user.Name, user.Role).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to upsert user: %w", err)
	}
	return id, nil
}
