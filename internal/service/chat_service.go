package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"altenheim-avatar/internal/auth"
	"altenheim-avatar/internal/domain"
	"altenheim-avatar/internal/events"
	"altenheim-avatar/internal/llm"
	"altenheim-avatar/internal/prompt"
	"altenheim-avatar/internal/repository"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message        string          `json:"message"`
	Mode           domain.ChatMode `json:"mode"`
	ConversationID string          `json:"conversationId,omitempty"`
	ResidentID     string          `json:"residentId,omitempty"`
}

// ChatTurn is an authorized turn whose user message is already stored.
type ChatTurn struct {
	Identity     *auth.Identity
	Conversation *domain.Conversation
	Resident     *domain.Resident
	Mode         domain.ChatMode
	Message      string
	// History is the window read before the user message was stored.
	History []domain.HistoryEntry
	Profile *prompt.ResidentProfile
}

// StreamRequest builds the bridge input for the turn.
func (t *ChatTurn) StreamRequest() llm.StreamRequest {
	return llm.StreamRequest{
		Message:  t.Message,
		Mode:     t.Mode,
		History:  t.History,
		Resident: t.Profile,
	}
}

type ChatOptions struct {
	HistoryLimit    int
	MaxMessageChars int
}

// ChatService prepares and completes chat turns around the streaming bridge.
type ChatService struct {
	gate          *AccessGate
	conversations repository.ConversationsRepository
	biographies   repository.BiographiesRepository
	publisher     events.Publisher
	opts          ChatOptions
	logger        *zap.Logger
	now           func() time.Time
}

func NewChatService(
	gate *AccessGate,
	conversations repository.ConversationsRepository,
	biographies repository.BiographiesRepository,
	publisher events.Publisher,
	opts ChatOptions,
	logger *zap.Logger,
) *ChatService {
	if opts.HistoryLimit <= 0 || opts.HistoryLimit > repository.MaxHistoryLimit {
		opts.HistoryLimit = repository.MaxHistoryLimit
	}
	if opts.MaxMessageChars <= 0 {
		opts.MaxMessageChars = llm.DefaultMaxMessageChars
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &ChatService{
		gate:          gate,
		conversations: conversations,
		biographies:   biographies,
		publisher:     publisher,
		opts:          opts,
		logger:        logger,
		now:           time.Now,
	}
}

// Prepare validates and authorizes a turn, opens or continues the conversation,
// reads the history window and stores the user message.
func (s *ChatService) Prepare(ctx context.Context, id *auth.Identity, req ChatRequest) (*ChatTurn, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return nil, validationError("message is required.")
	}
	if utf8.RuneCountInString(msg) > s.opts.MaxMessageChars {
		return nil, validationError("message is too long.")
	}
	if !req.Mode.Valid() {
		return nil, validationError("mode must be companion or staff.")
	}
	if req.ConversationID != "" {
		if _, err := uuid.Parse(req.ConversationID); err != nil {
			return nil, validationError("conversationId must be a UUID.")
		}
	}
	if req.ResidentID != "" {
		if _, err := uuid.Parse(req.ResidentID); err != nil {
			return nil, validationError("residentId must be a UUID.")
		}
	}

	target, err := s.gate.ResolveChat(ctx, id, req.Mode, req.ConversationID, req.ResidentID)
	if err != nil {
		return nil, err
	}

	conv := target.Conversation
	if conv == nil {
		conv, err = s.conversations.Create(ctx, target.Resident.TenantID, target.Resident.ResidentID, req.Mode)
		if err != nil {
			return nil, storageError(err)
		}
		s.publish(ctx, events.TypeConversationStarted, target.Resident, conv, 0)
	}

	history, err := s.conversations.History(ctx, conv.ConversationID, s.opts.HistoryLimit)
	if err != nil {
		return nil, storageError(err)
	}
	if _, err := s.conversations.AppendMessage(ctx, conv.ConversationID, domain.MessageRoleUser, msg, nil); err != nil {
		return nil, storageError(err)
	}

	turn := &ChatTurn{
		Identity:     id,
		Conversation: conv,
		Resident:     target.Resident,
		Mode:         req.Mode,
		Message:      msg,
		History:      history,
	}
	if req.Mode == domain.ModeCompanion {
		bios, err := s.biographies.ListByResident(ctx, target.Resident.ResidentID)
		if err != nil {
			return nil, storageError(err)
		}
		turn.Profile = prompt.NewResidentProfile(target.Resident, bios)
	}
	return turn, nil
}

// Complete persists the assistant reply. The counter is the history window plus
// the user message and the reply.
func (s *ChatService) Complete(ctx context.Context, turn *ChatTurn, reply string, tokensUsed int) error {
	_, err := s.conversations.RecordCompletion(ctx, repository.Completion{
		TenantID:       turn.Resident.TenantID,
		ConversationID: turn.Conversation.ConversationID,
		Reply:          reply,
		TokensUsed:     tokensUsed,
		MessageCount:   len(turn.History) + 2,
	})
	if err != nil {
		s.logger.Error("Failed to persist reply",
			zap.String("conversation_id", turn.Conversation.ConversationID),
			zap.Error(err),
		)
		return storageError(err)
	}
	s.publish(ctx, events.TypeConversationReplied, turn.Resident, turn.Conversation, tokensUsed)
	return nil
}

func (s *ChatService) publish(ctx context.Context, typ string, r *domain.Resident, c *domain.Conversation, tokens int) {
	publishEvent(ctx, s.publisher, s.logger, events.Event{
		Type:           typ,
		TenantID:       r.TenantID,
		ResidentID:     r.ResidentID,
		ConversationID: c.ConversationID,
		Mode:           string(c.Mode),
		Tokens:         tokens,
		At:             s.now().UTC(),
	})
}

func publishEvent(ctx context.Context, p events.Publisher, logger *zap.Logger, ev events.Event) {
	if err := p.Publish(ctx, ev); err != nil {
		logger.Warn("Failed to publish event",
			zap.String("type", ev.Type),
			zap.String("conversation_id", ev.ConversationID),
			zap.Error(err),
		)
	}
}
