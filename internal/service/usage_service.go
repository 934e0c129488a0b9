package service

import (
	"context"

	"altenheim-avatar/internal/auth"
	"altenheim-avatar/internal/domain"
	"altenheim-avatar/internal/repository"
)

// UsageMonths is how far back the usage report reaches.
const UsageMonths = 12

// UsageService reports monthly chat volume of the caller's facility.
type UsageService interface {
	List(ctx context.Context, id *auth.Identity) ([]*domain.UsageStats, error)
}

type usageService struct {
	usage repository.UsageRepository
}

func NewUsageService(usage repository.UsageRepository) UsageService {
	return &usageService{usage: usage}
}

func (s *usageService) List(ctx context.Context, id *auth.Identity) ([]*domain.UsageStats, error) {
	if !id.HasRole(domain.RoleAdmin) {
		return nil, forbiddenError(msgNoPermission)
	}
	stats, err := s.usage.ListByTenant(ctx, id.TenantID, UsageMonths)
	if err != nil {
		return nil, storageError(err)
	}
	return stats, nil
}
