package domain

import "time"

// ChatMode is the purpose of a conversation, fixed at creation.
type ChatMode string

const (
	ModeCompanion ChatMode = "companion"
	ModeStaff     ChatMode = "staff"
)

// Valid reports whether m is a known mode.
func (m ChatMode) Valid() bool {
	return m == ModeCompanion || m == ModeStaff
}

// Message roles.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// Conversation (conversations table). A conversation with EndedAt set is terminal.
type Conversation struct {
	ConversationID string     `db:"id" json:"id"`
	ResidentID     string     `db:"resident_id" json:"resident_id"`
	Mode           ChatMode   `db:"mode" json:"mode"`
	StartedAt      time.Time  `db:"started_at" json:"started_at"`
	EndedAt        *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	MessageCount   int        `db:"message_count" json:"message_count"`
	MoodStart      string     `db:"mood_start" json:"mood_start,omitempty"`
	MoodEnd        string     `db:"mood_end" json:"mood_end,omitempty"`
	Summary        string     `db:"summary" json:"summary,omitempty"`
	Flagged        bool       `db:"flagged" json:"flagged"`
	FlagReason     string     `db:"flag_reason" json:"flag_reason,omitempty"`
}

// Ended reports whether the conversation is terminal.
func (c *Conversation) Ended() bool {
	return c.EndedAt != nil
}

// Message is one immutable turn (messages table).
type Message struct {
	MessageID      string    `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	Role           string    `db:"role" json:"role"` // user | assistant
	Content        string    `db:"content" json:"content"`
	MoodDetected   string    `db:"mood_detected" json:"mood_detected,omitempty"`
	TokensUsed     *int      `db:"tokens_used" json:"tokens_used,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// HistoryEntry is the slice of a Message handed to the language model.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
