package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a lookup by id or key matches no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a unique constraint.
	ErrConflict = errors.New("conflict")
)

// usageUpsertSQL adds to the usage counters of a facility for one month.
const usageUpsertSQL = `
	INSERT INTO usage_stats (facility_id, month, total_conversations, total_messages, total_tokens)
	VALUES ($1::uuid, $2::date, $3, $4, $5)
	ON CONFLICT (facility_id, month) DO UPDATE SET
		total_conversations = usage_stats.total_conversations + EXCLUDED.total_conversations,
		total_messages = usage_stats.total_messages + EXCLUDED.total_messages,
		total_tokens = usage_stats.total_tokens + EXCLUDED.total_tokens
`

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
