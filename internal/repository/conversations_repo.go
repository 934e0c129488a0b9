package repository

import (
	"context"

	"altenheim-avatar/internal/domain"
)

// MaxHistoryLimit caps the history window handed to the language model.
const MaxHistoryLimit = 20

// Completion is a finished assistant reply to persist.
type Completion struct {
	TenantID       string
	ConversationID string
	Reply          string
	TokensUsed     int
	// MessageCount is the new value of the conversation's message counter.
	MessageCount int
}

// ConversationsRepository conversations and their turns.
type ConversationsRepository interface {
	// Create opens a conversation and counts it in the tenant's monthly usage.
	Create(ctx context.Context, tenantID, residentID string, mode domain.ChatMode) (*domain.Conversation, error)
	// Get returns the raw record without any scoping.
	Get(ctx context.Context, conversationID string) (*domain.Conversation, error)
	// History returns at most limit turns, oldest first.
	History(ctx context.Context, conversationID string, limit int) ([]domain.HistoryEntry, error)
	AppendMessage(ctx context.Context, conversationID, role, content string, tokensUsed *int) (*domain.Message, error)
	// RecordCompletion stores the assistant reply, sets the counter and adds to usage in one transaction.
	RecordCompletion(ctx context.Context, c Completion) (*domain.Message, error)
	// End sets ended_at if it is not set yet and returns the record.
	End(ctx context.Context, conversationID string) (*domain.Conversation, error)
	// ListByResident returns the newest conversations first.
	ListByResident(ctx context.Context, residentID string, limit int) ([]*domain.Conversation, error)
	// Messages returns the full transcript, oldest first.
	Messages(ctx context.Context, conversationID string) ([]*domain.Message, error)
}
