package main

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"altenheim-avatar/internal/common/config"
	"altenheim-avatar/internal/common/database"
	"altenheim-avatar/internal/repository"
	"altenheim-avatar/internal/seed"
)

// repos is the storage the services run on.
type repos struct {
	tenants       repository.TenantsRepository
	users         repository.UsersRepository
	residents     repository.ResidentsRepository
	biographies   repository.BiographiesRepository
	conversations repository.ConversationsRepository
	usage         repository.UsageRepository

	db *sql.DB // nil in memory mode
}

func (r *repos) seedRepos() seed.Repos {
	return seed.Repos{Tenants: r.tenants, Users: r.users, Residents: r.residents, Biographies: r.biographies}
}

func (r *repos) Close() error {
	return database.Close(r.db)
}

func openPostgres(ctx context.Context, cfg *config.DatabaseConfig) (*repos, error) {
	db, err := database.NewPostgresDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &repos{
		tenants:       repository.NewPostgresTenantsRepository(db),
		users:         repository.NewPostgresUsersRepository(db),
		residents:     repository.NewPostgresResidentsRepository(db),
		biographies:   repository.NewPostgresBiographiesRepository(db),
		conversations: repository.NewPostgresConversationsRepository(db),
		usage:         repository.NewPostgresUsageRepository(db),
		db:            db,
	}, nil
}

// openMemory returns in-memory storage loaded with the demo facility.
func openMemory(ctx context.Context, logger *zap.Logger) (*repos, error) {
	residents := repository.NewMemoryResidentsRepository()
	usage := repository.NewMemoryUsageRepository()
	r := &repos{
		tenants:       repository.NewMemoryTenantsRepository(),
		users:         repository.NewMemoryUsersRepository(),
		residents:     residents,
		biographies:   repository.NewMemoryBiographiesRepository(residents),
		conversations: repository.NewMemoryConversationsRepository(usage),
		usage:         usage,
	}
	if _, err := seed.Demo(ctx, r.seedRepos(), 0, logger); err != nil {
		return nil, err
	}
	return r, nil
}
