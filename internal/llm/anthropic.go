package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"altenheim-avatar/internal/domain"
)

type anthropicMessages interface {
	NewStreaming(ctx context.Context, params anthropicsdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[anthropicsdk.MessageStreamEventUnion]
}

// AnthropicStreamer streams replies from the Anthropic Messages API.
type AnthropicStreamer struct {
	msgs anthropicMessages
}

var _ Streamer = (*AnthropicStreamer)(nil)

// NewAnthropicStreamer builds a client that never retries; the caller owns the time budget.
func NewAnthropicStreamer(apiKey, baseURL string) (*AnthropicStreamer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("anthropic: api key required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropicsdk.NewClient(opts...)
	return &AnthropicStreamer{msgs: &client.Messages}, nil
}

func (s *AnthropicStreamer) Stream(ctx context.Context, req ProviderRequest, onText func(string)) (Usage, error) {
	stream := s.msgs.NewStreaming(ctx, buildParams(req))
	if stream == nil {
		return Usage{}, errors.New("anthropic stream not available")
	}
	defer stream.Close()

	var final anthropicsdk.Message
	for stream.Next() {
		event := stream.Current()
		if err := final.Accumulate(event); err != nil {
			return Usage{}, fmt.Errorf("accumulate stream: %w", err)
		}
		if ev, ok := event.AsAny().(anthropicsdk.ContentBlockDeltaEvent); ok {
			if text := ev.Delta.AsTextDelta().Text; text != "" {
				onText(text)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return Usage{}, err
	}
	return Usage{
		InputTokens:  int(final.Usage.InputTokens),
		OutputTokens: int(final.Usage.OutputTokens),
	}, nil
}

func buildParams(req ProviderRequest) anthropicsdk.MessageNewParams {
	msgs := make([]anthropicsdk.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := anthropicsdk.MessageParamRoleUser
		if m.Role == domain.MessageRoleAssistant {
			role = anthropicsdk.MessageParamRoleAssistant
		}
		msgs = append(msgs, anthropicsdk.MessageParam{
			Role:    role,
			Content: []anthropicsdk.ContentBlockParamUnion{anthropicsdk.NewTextBlock(m.Content)},
		})
	}

	params := anthropicsdk.MessageNewParams{
		Model:       anthropicsdk.Model(req.Profile.Model),
		MaxTokens:   int64(req.Profile.MaxTokens),
		Messages:    msgs,
		Temperature: param.NewOpt(req.Profile.Temperature),
	}
	if req.System != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: req.System}}
	}
	return params
}
