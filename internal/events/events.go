// Package events publishes conversation lifecycle events to other services.
package events

import (
	"context"
	"time"
)

// Event types.
const (
	TypeConversationStarted = "conversation.started"
	TypeConversationReplied = "conversation.replied"
	TypeConversationEnded   = "conversation.ended"
)

// Event is the JSON payload of one conversation lifecycle event.
type Event struct {
	Type           string    `json:"type"`
	TenantID       string    `json:"tenant_id"`
	ResidentID     string    `json:"resident_id"`
	ConversationID string    `json:"conversation_id"`
	Mode           string    `json:"mode"`
	Tokens         int       `json:"tokens,omitempty"`
	At             time.Time `json:"at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
