package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"altenheim-avatar/internal/auth"
	"altenheim-avatar/internal/domain"
	"altenheim-avatar/internal/repository"
)

const maxBiographyKeyChars = 100

const msgBiographyNotFound = "Biography entry not found."

// BiographyInput is the body of the biography create and update routes.
// On update, absent fields keep their stored value.
type BiographyInput struct {
	Category *string `json:"category"`
	Key      *string `json:"key"`
	Value    *string `json:"value"`
	Source   string  `json:"source,omitempty"`
}

// BiographyService maintains the confirmed facts the companion may talk about.
// Only admins and caregivers of the resident's facility may read or change them.
type BiographyService interface {
	List(ctx context.Context, id *auth.Identity, residentID string) ([]*domain.Biography, error)
	Upsert(ctx context.Context, id *auth.Identity, residentID string, in BiographyInput) (*domain.Biography, error)
	Update(ctx context.Context, id *auth.Identity, biographyID string, in BiographyInput) (*domain.Biography, error)
	Delete(ctx context.Context, id *auth.Identity, biographyID string) error
}

type biographyService struct {
	gate        *AccessGate
	biographies repository.BiographiesRepository
	logger      *zap.Logger
}

func NewBiographyService(gate *AccessGate, biographies repository.BiographiesRepository, logger *zap.Logger) BiographyService {
	return &biographyService{gate: gate, biographies: biographies, logger: logger}
}

func (s *biographyService) List(ctx context.Context, id *auth.Identity, residentID string) ([]*domain.Biography, error) {
	r, err := s.gate.AuthorizeResidentListing(ctx, id, residentID)
	if err != nil {
		return nil, err
	}
	list, err := s.biographies.ListByResident(ctx, r.ResidentID)
	if err != nil {
		return nil, storageError(err)
	}
	return list, nil
}

func (s *biographyService) Upsert(ctx context.Context, id *auth.Identity, residentID string, in BiographyInput) (*domain.Biography, error) {
	if in.Category == nil || in.Key == nil || in.Value == nil {
		return nil, validationError("category, key and value are required.")
	}
	if err := validateBiography(in); err != nil {
		return nil, err
	}
	source := in.Source
	if source == "" {
		source = domain.BioSourceManual
	}
	if source != domain.BioSourceManual && source != domain.BioSourceConversation {
		return nil, validationError("source must be manual or conversation.")
	}

	r, err := s.gate.AuthorizeResidentListing(ctx, id, residentID)
	if err != nil {
		return nil, err
	}
	b, err := s.biographies.Upsert(ctx, &domain.Biography{
		ResidentID: r.ResidentID,
		Category:   *in.Category,
		Key:        strings.TrimSpace(*in.Key),
		Value:      strings.TrimSpace(*in.Value),
		Source:     source,
	})
	if err != nil {
		return nil, storageError(err)
	}
	return b, nil
}

func (s *biographyService) Update(ctx context.Context, id *auth.Identity, biographyID string, in BiographyInput) (*domain.Biography, error) {
	if err := validateBiography(in); err != nil {
		return nil, err
	}
	if err := s.authorizeEntry(ctx, id, biographyID); err != nil {
		return nil, err
	}
	upd := repository.BiographyUpdate{Category: in.Category, Key: trimmed(in.Key), Value: trimmed(in.Value)}
	b, err := s.biographies.Update(ctx, biographyID, upd)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, notFoundError(msgBiographyNotFound)
	case errors.Is(err, repository.ErrConflict):
		return nil, validationError("An entry with this category and key already exists.")
	case err != nil:
		return nil, storageError(err)
	}
	return b, nil
}

func (s *biographyService) Delete(ctx context.Context, id *auth.Identity, biographyID string) error {
	if err := s.authorizeEntry(ctx, id, biographyID); err != nil {
		return err
	}
	err := s.biographies.Delete(ctx, biographyID)
	if errors.Is(err, repository.ErrNotFound) {
		return notFoundError(msgBiographyNotFound)
	}
	if err != nil {
		return storageError(err)
	}
	return nil
}

// authorizeEntry checks existence first, then the facility of the entry's resident.
func (s *biographyService) authorizeEntry(ctx context.Context, id *auth.Identity, biographyID string) error {
	if !id.HasRole(domain.RoleAdmin, domain.RoleCaregiver) {
		return forbiddenError(msgNoPermission)
	}
	if _, err := uuid.Parse(biographyID); err != nil {
		return validationError("id must be a UUID.")
	}
	_, tenantID, err := s.biographies.GetWithTenant(ctx, biographyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundError(msgBiographyNotFound)
		}
		return storageError(err)
	}
	if tenantID != id.TenantID {
		s.logger.Warn("Biography access denied",
			zap.String("biography_id", biographyID),
			zap.String("reason", "tenant_mismatch"),
		)
		return forbiddenError(msgNoResidentAccess)
	}
	return nil
}

func validateBiography(in BiographyInput) error {
	if in.Category != nil && !domain.IsBiographyCategory(*in.Category) {
		return validationError("category must be one of family, career, hobbies, hometown, memories, preferences.")
	}
	if in.Key != nil {
		n := utf8.RuneCountInString(strings.TrimSpace(*in.Key))
		if n == 0 || n > maxBiographyKeyChars {
			return validationError("key must be 1 to 100 characters.")
		}
	}
	if in.Value != nil && strings.TrimSpace(*in.Value) == "" {
		return validationError("value must not be empty.")
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
