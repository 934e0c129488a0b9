package repository

import (
	"context"

	"altenheim-avatar/internal/domain"
)

// UsersRepository staff identities.
type UsersRepository interface {
	GetActiveByEmail(ctx context.Context, email string) (*domain.User, error)
	// UpsertUser creates the user or replaces name, role and password hash, keyed by email.
	UpsertUser(ctx context.Context, user *domain.User) (string, error)
}
