package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"altenheim-avatar/internal/domain"
)

type PostgresConversationsRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresConversationsRepository(db *sql.DB) *PostgresConversationsRepository {
	return &PostgresConversationsRepository{db: db, now: time.Now}
}

var _ ConversationsRepository = (*PostgresConversationsRepository)(nil)

const conversationColumns = `
	id::text,
	resident_id::text,
	mode,
	started_at,
	ended_at,
	message_count,
	COALESCE(mood_start, ''),
	COALESCE(mood_end, ''),
	COALESCE(summary, ''),
	flagged,
	COALESCE(flag_reason, '')
`

func scanConversation(s rowScanner) (*domain.Conversation, error) {
	var c domain.Conversation
	var mode string
	var ended sql.NullTime
	err := s.Scan(
		&c.ConversationID,
		&c.ResidentID,
		&mode,
		&c.StartedAt,
		&ended,
		&c.MessageCount,
		&c.MoodStart,
		&c.MoodEnd,
		&c.Summary,
		&c.Flagged,
		&c.FlagReason,
	)
	if err != nil {
		return nil, err
	}
	c.Mode = domain.ChatMode(mode)
	if ended.Valid {
		t := ended.Time
		c.EndedAt = &t
	}
	return &c, nil
}

func (r *PostgresConversationsRepository) Create(ctx context.Context, tenantID, residentID string, mode domain.ChatMode) (*domain.Conversation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO conversations (resident_id, mode)
		VALUES ($1::uuid, $2)
		RETURNING id::text, started_at`
	c := &domain.Conversation{ResidentID: residentID, Mode: mode}
	if err := tx.QueryRowContext(ctx, query, residentID, string(mode)).Scan(&c.ConversationID, &c.StartedAt); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, usageUpsertSQL, tenantID, domain.MonthOf(r.now()), 1, 0, 0); err != nil {
		return nil, fmt.Errorf("failed to update usage stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit conversation: %w", err)
	}
	return c, nil
}

func (r *PostgresConversationsRepository) Get(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1::uuid`
	c, err := scanConversation(r.db.QueryRowContext(ctx, query, conversationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("conversation: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return c, nil
}

func (r *PostgresConversationsRepository) History(ctx context.Context, conversationID string, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 || limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	query := `
		SELECT role, content
		FROM messages
		WHERE conversation_id = $1::uuid
		ORDER BY created_at ASC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer rows.Close()

	history := make([]domain.HistoryEntry, 0, limit)
	for rows.Next() {
		var h domain.HistoryEntry
		if err := rows.Scan(&h.Role, &h.Content); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return history, nil
}

const insertMessageSQL = `
	INSERT INTO messages (conversation_id, role, content, tokens_used)
	VALUES ($1::uuid, $2, $3, $4)
	RETURNING id::text, created_at`

func (r *PostgresConversationsRepository) AppendMessage(ctx context.Context, conversationID, role, content string, tokensUsed *int) (*domain.Message, error) {
	m := &domain.Message{ConversationID: conversationID, Role: role, Content: content, TokensUsed: tokensUsed}
	if err := r.db.QueryRowContext(ctx, insertMessageSQL, conversationID, role, content, tokensUsed).Scan(&m.MessageID, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	return m, nil
}

func (r *PostgresConversationsRepository) RecordCompletion(ctx context.Context, c Completion) (*domain.Message, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	tokens := c.TokensUsed
	m := &domain.Message{
		ConversationID: c.ConversationID,
		Role:           domain.MessageRoleAssistant,
		Content:        c.Reply,
		TokensUsed:     &tokens,
	}
	if err := tx.QueryRowContext(ctx, insertMessageSQL, c.ConversationID, m.Role, c.Reply, tokens).Scan(&m.MessageID, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert reply: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE conversations SET message_count = $2 WHERE id = $1::uuid`, c.ConversationID, c.MessageCount); err != nil {
		return nil, fmt.Errorf("failed to update message count: %w", err)
	}

	if _, err := tx.ExecContext(ctx, usageUpsertSQL, c.TenantID, domain.MonthOf(r.now()), 0, 2, tokens); err != nil {
		return nil, fmt.Errorf("failed to update usage stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reply: %w", err)
	}
	return m, nil
}

func (r *PostgresConversationsRepository) End(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	query := `
		UPDATE conversations
		SET ended_at = COALESCE(ended_at, now())
		WHERE id = $1::uuid
		RETURNING ` + conversationColumns
	c, err := scanConversation(r.db.QueryRowContext(ctx, query, conversationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("conversation: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to end conversation: %w", err)
	}
	return c, nil
}

func (r *PostgresConversationsRepository) ListByResident(ctx context.Context, residentID string, limit int) ([]*domain.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + conversationColumns + `
		FROM conversations
		WHERE resident_id = $1::uuid
		ORDER BY started_at DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, residentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []*domain.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}
	return out, nil
}

func (r *PostgresConversationsRepository) Messages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	query := `
		SELECT
			id::text,
			conversation_id::text,
			role,
			content,
			COALESCE(mood_detected, ''),
			tokens_used,
			created_at
		FROM messages
		WHERE conversation_id = $1::uuid
		ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var out []*domain.Message
	for rows.Next() {
		var m domain.Message
		var tokens sql.NullInt64
		if err := rows.Scan(&m.MessageID, &m.ConversationID, &m.Role, &m.Content, &m.MoodDetected, &tokens, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if tokens.Valid {
			n := int(tokens.Int64)
			m.TokensUsed = &n
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return out, nil
}
