package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"altenheim-avatar/internal/auth"
	"altenheim-avatar/internal/domain"
	"altenheim-avatar/internal/repository"
)

// AccessGate decides whether an identity may act on a resident or conversation.
// Existence is checked first with unscoped lookups (not found), then scope (forbidden).
type AccessGate struct {
	residents     repository.ResidentsRepository
	conversations repository.ConversationsRepository
}

func NewAccessGate(residents repository.ResidentsRepository, conversations repository.ConversationsRepository) *AccessGate {
	return &AccessGate{residents: residents, conversations: conversations}
}

// ChatTarget is the resolved subject of a chat turn. Conversation is nil when a new
// conversation has to be started.
type ChatTarget struct {
	Resident     *domain.Resident
	Conversation *domain.Conversation
}

// ResolveChat authorizes starting or continuing a conversation in mode.
func (g *AccessGate) ResolveChat(ctx context.Context, id *auth.Identity, mode domain.ChatMode, conversationID, residentID string) (*ChatTarget, error) {
	switch mode {
	case domain.ModeCompanion:
		if !id.IsResident() {
			return nil, forbiddenError("Companion mode requires a resident login.")
		}
	case domain.ModeStaff:
		if !id.IsStaff() {
			return nil, forbiddenError("Staff mode is for staff members only.")
		}
	default:
		return nil, validationError("mode must be companion or staff.")
	}

	targetID := residentID
	if mode == domain.ModeCompanion {
		targetID = id.ResidentID
	}
	if mode == domain.ModeStaff && targetID == "" && conversationID == "" {
		return nil, validationError("residentId is required to start a staff conversation.")
	}

	target := &ChatTarget{}
	if targetID != "" {
		r, err := g.loadResident(ctx, targetID)
		if err != nil {
			return nil, err
		}
		if r.TenantID != id.TenantID || (id.IsResident() && r.ResidentID != id.ResidentID) {
			return nil, forbiddenError(msgNoResidentAccess)
		}
		target.Resident = r
	}

	if conversationID == "" {
		return target, nil
	}

	conv, owner, err := g.loadOwnedConversation(ctx, id, conversationID)
	if err != nil {
		return nil, err
	}
	if target.Resident == nil {
		target.Resident = owner
	}
	if conv.ResidentID != target.Resident.ResidentID {
		return nil, validationError("conversationId does not belong to the given resident.")
	}
	if conv.Mode != mode {
		return nil, validationError("conversationId does not match the selected mode.")
	}
	if conv.Ended() {
		return nil, validationError("This conversation has already ended.")
	}
	target.Conversation = conv
	return target, nil
}

// AuthorizeConversation allows the owning resident or staff of the owner's tenant.
func (g *AccessGate) AuthorizeConversation(ctx context.Context, id *auth.Identity, conversationID string) (*domain.Conversation, *domain.Resident, error) {
	return g.loadOwnedConversation(ctx, id, conversationID)
}

// AuthorizeTranscript allows the owning resident, or admins and caregivers of the owner's tenant.
func (g *AccessGate) AuthorizeTranscript(ctx context.Context, id *auth.Identity, conversationID string) (*domain.Conversation, *domain.Resident, error) {
	if !id.IsResident() && !id.HasRole(domain.RoleAdmin, domain.RoleCaregiver) {
		return nil, nil, forbiddenError(msgNoPermission)
	}
	return g.loadOwnedConversation(ctx, id, conversationID)
}

// AuthorizeResidentListing allows admins and caregivers of the resident's tenant.
func (g *AccessGate) AuthorizeResidentListing(ctx context.Context, id *auth.Identity, residentID string) (*domain.Resident, error) {
	if !id.HasRole(domain.RoleAdmin, domain.RoleCaregiver) {
		return nil, forbiddenError(msgNoPermission)
	}
	r, err := g.loadResident(ctx, residentID)
	if err != nil {
		return nil, err
	}
	if r.TenantID != id.TenantID {
		return nil, forbiddenError(msgNoResidentAccess)
	}
	return r, nil
}

func (g *AccessGate) loadResident(ctx context.Context, residentID string) (*domain.Resident, error) {
	if _, err := uuid.Parse(residentID); err != nil {
		return nil, validationError("residentId must be a UUID.")
	}
	r, err := g.residents.GetResident(ctx, residentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError(msgResidentNotFound)
		}
		return nil, storageError(err)
	}
	return r, nil
}

// loadOwnedConversation returns the conversation and its owner if the caller may touch it.
func (g *AccessGate) loadOwnedConversation(ctx context.Context, id *auth.Identity, conversationID string) (*domain.Conversation, *domain.Resident, error) {
	if _, err := uuid.Parse(conversationID); err != nil {
		return nil, nil, validationError("conversationId must be a UUID.")
	}
	conv, err := g.conversations.Get(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, notFoundError(msgConversationNotFound)
		}
		return nil, nil, storageError(err)
	}

	if id.IsResident() && conv.ResidentID != id.ResidentID {
		return nil, nil, forbiddenError(msgNoConversationAccess)
	}

	owner, err := g.residents.GetResident(ctx, conv.ResidentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, forbiddenError(msgNoConversationAccess)
		}
		return nil, nil, storageError(err)
	}
	if owner.TenantID != id.TenantID {
		return nil, nil, forbiddenError(msgNoConversationAccess)
	}
	return conv, owner, nil
}
