package domain

import "time"

// UsageStats aggregates chat volume per facility and month (usage_stats table).
type UsageStats struct {
	TenantID           string    `db:"facility_id" json:"facility_id"`
	Month              time.Time `db:"month" json:"month"` // first day of month, UTC
	TotalConversations int       `db:"total_conversations" json:"total_conversations"`
	TotalMessages      int       `db:"total_messages" json:"total_messages"`
	TotalTokens        int       `db:"total_tokens" json:"total_tokens"`
}

// MonthOf truncates t to the first day of its month in UTC.
func MonthOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
