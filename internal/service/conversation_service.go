package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"altenheim-avatar/internal/auth"
	"altenheim-avatar/internal/domain"
	"altenheim-avatar/internal/events"
	"altenheim-avatar/internal/export"
	"altenheim-avatar/internal/repository"
)

// Listing limits.
const (
	ResidentListLimit = 50
	OwnListLimit      = 20
)

// ConversationService reads, ends and exports conversations.
type ConversationService interface {
	ListForResident(ctx context.Context, id *auth.Identity, residentID string) ([]*domain.Conversation, error)
	ListOwn(ctx context.Context, id *auth.Identity) ([]*domain.Conversation, error)
	Messages(ctx context.Context, id *auth.Identity, conversationID string) ([]*domain.Message, error)
	End(ctx context.Context, id *auth.Identity, conversationID string) (*domain.Conversation, error)
	// Export renders the transcript as an xlsx workbook and returns a file name for it.
	Export(ctx context.Context, id *auth.Identity, conversationID string) ([]byte, string, error)
}

type conversationService struct {
	gate          *AccessGate
	conversations repository.ConversationsRepository
	publisher     events.Publisher
	logger        *zap.Logger
	now           func() time.Time
}

func NewConversationService(gate *AccessGate, conversations repository.ConversationsRepository, publisher events.Publisher, logger *zap.Logger) ConversationService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &conversationService{
		gate:          gate,
		conversations: conversations,
		publisher:     publisher,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *conversationService) ListForResident(ctx context.Context, id *auth.Identity, residentID string) ([]*domain.Conversation, error) {
	r, err := s.gate.AuthorizeResidentListing(ctx, id, residentID)
	if err != nil {
		return nil, err
	}
	list, err := s.conversations.ListByResident(ctx, r.ResidentID, ResidentListLimit)
	if err != nil {
		return nil, storageError(err)
	}
	return list, nil
}

func (s *conversationService) ListOwn(ctx context.Context, id *auth.Identity) ([]*domain.Conversation, error) {
	if !id.IsResident() {
		return nil, forbiddenError("Only residents have their own conversations.")
	}
	list, err := s.conversations.ListByResident(ctx, id.ResidentID, OwnListLimit)
	if err != nil {
		return nil, storageError(err)
	}
	return list, nil
}

func (s *conversationService) Messages(ctx context.Context, id *auth.Identity, conversationID string) ([]*domain.Message, error) {
	conv, _, err := s.gate.AuthorizeTranscript(ctx, id, conversationID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.conversations.Messages(ctx, conv.ConversationID)
	if err != nil {
		return nil, storageError(err)
	}
	return msgs, nil
}

// End closes the conversation. Ending an ended conversation returns it unchanged.
func (s *conversationService) End(ctx context.Context, id *auth.Identity, conversationID string) (*domain.Conversation, error) {
	conv, owner, err := s.gate.AuthorizeConversation(ctx, id, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Ended() {
		return conv, nil
	}
	ended, err := s.conversations.End(ctx, conv.ConversationID)
	if err != nil {
		return nil, storageError(err)
	}
	publishEvent(ctx, s.publisher, s.logger, events.Event{
		Type:           events.TypeConversationEnded,
		TenantID:       owner.TenantID,
		ResidentID:     owner.ResidentID,
		ConversationID: ended.ConversationID,
		Mode:           string(ended.Mode),
		At:             s.now().UTC(),
	})
	return ended, nil
}

func (s *conversationService) Export(ctx context.Context, id *auth.Identity, conversationID string) ([]byte, string, error) {
	if !id.HasRole(domain.RoleAdmin, domain.RoleCaregiver) {
		return nil, "", forbiddenError(msgNoPermission)
	}
	conv, owner, err := s.gate.AuthorizeTranscript(ctx, id, conversationID)
	if err != nil {
		return nil, "", err
	}
	msgs, err := s.conversations.Messages(ctx, conv.ConversationID)
	if err != nil {
		return nil, "", storageError(err)
	}
	data, err := export.WriteTranscript(export.MetaFor(conv, owner), msgs)
	if err != nil {
		return nil, "", internalError(err)
	}
	name := "conversation-" + conv.StartedAt.UTC().Format("2006-01-02") + "-" + conv.ConversationID[:8] + ".xlsx"
	return data, name, nil
}
