package repository

import (
	"context"
	"database/sql"
	"fmt"

	"altenheim-avatar/internal/domain"
)

type PostgresUsageRepository struct {
	db *sql.DB
}

func NewPostgresUsageRepository(db *sql.DB) *PostgresUsageRepository {
	return &PostgresUsageRepository{db: db}
}

var _ UsageRepository = (*PostgresUsageRepository)(nil)

func (r *PostgresUsageRepository) ListByTenant(ctx context.Context, tenantID string, months int) ([]*domain.UsageStats, error) {
	if months <= 0 {
		months = 12
	}
	query := `
		SELECT facility_id::text, month, total_conversations, total_messages, total_tokens
		FROM usage_stats
		WHERE facility_id = $1::uuid
		ORDER BY month DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, tenantID, months)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage stats: %w", err)
	}
	defer rows.Close()

	var out []*domain.UsageStats
	for rows.Next() {
		var u domain.UsageStats
		if err := rows.Scan(&u.TenantID, &u.Month, &u.TotalConversations, &u.TotalMessages, &u.TotalTokens); err != nil {
			return nil, fmt.Errorf("failed to scan usage stats: %w", err)
		}
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate usage stats: %w", err)
	}
	return out, nil
}
