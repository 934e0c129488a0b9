package llm

import (
	"context"

	"altenheim-avatar/internal/domain"
)

// ProviderRequest is one completion request as the provider sees it.
type ProviderRequest struct {
	Profile  ModelProfile
	System   string
	Messages []domain.HistoryEntry
}

// Usage is the token accounting reported by the provider.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total is input plus output tokens.
func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

// Streamer is a language model provider that streams reply text.
// onText is called for every text fragment in arrival order. Stream returns
// when the provider finished or ctx was cancelled.
type Streamer interface {
	Stream(ctx context.Context, req ProviderRequest, onText func(string)) (Usage, error)
}
