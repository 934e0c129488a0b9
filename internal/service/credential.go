package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"altenheim-avatar/internal/domain"
	"altenheim-avatar/internal/metrics"
	"altenheim-avatar/internal/repository"
	"altenheim-avatar/internal/store"
)

var (
	ErrTenantNotFound = errors.New("facility not found")
	ErrPINIncorrect   = errors.New("PIN is incorrect")
)

var bcryptHashPattern = regexp.MustCompile(`^\$2[aby]\$\d{2}\$[./A-Za-z0-9]{53}$`)

// IsBcryptHash reports whether s is a well-formed bcrypt hash with a cost bcrypt accepts.
func IsBcryptHash(s string) bool {
	if !bcryptHashPattern.MatchString(s) {
		return false
	}
	cost, err := strconv.Atoi(s[4:6])
	return err == nil && cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost
}

// NormalizeSlug trims and lowercases a facility slug.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// PINIndex maps (tenant, PIN) to a resident id in a KV store. Keys hold an HMAC
// of the PIN, never the PIN. A hit is only a candidate and is always re-verified.
type PINIndex struct {
	kv  store.KV
	key []byte
	ttl time.Duration
}

func NewPINIndex(kv store.KV, secret string, ttl time.Duration) *PINIndex {
	return &PINIndex{kv: kv, key: []byte(secret), ttl: ttl}
}

func (p *PINIndex) indexKey(tenantID, pin string) string {
	mac := hmac.New(sha256.New, p.key)
	mac.Write([]byte(tenantID + "|" + pin))
	return fmt.Sprintf("pin-index:%s:%s", tenantID, hex.EncodeToString(mac.Sum(nil)))
}

// Lookup returns the candidate resident id or store.ErrMiss.
func (p *PINIndex) Lookup(ctx context.Context, tenantID, pin string) (string, error) {
	return p.kv.Get(ctx, p.indexKey(tenantID, pin))
}

func (p *PINIndex) Remember(ctx context.Context, tenantID, pin, residentID string) error {
	return p.kv.Set(ctx, p.indexKey(tenantID, pin), residentID, p.ttl)
}

func (p *PINIndex) Forget(ctx context.Context, tenantID, pin string) error {
	return p.kv.Delete(ctx, p.indexKey(tenantID, pin))
}

// CredentialMatcher resolves a facility slug and PIN to one resident.
type CredentialMatcher struct {
	tenants   repository.TenantsRepository
	residents repository.ResidentsRepository
	index     *PINIndex
	logger    *zap.Logger
}

// NewCredentialMatcher builds a matcher; index may be nil.
func NewCredentialMatcher(tenants repository.TenantsRepository, residents repository.ResidentsRepository, index *PINIndex, logger *zap.Logger) *CredentialMatcher {
	return &CredentialMatcher{tenants: tenants, residents: residents, index: index, logger: logger}
}

// Match returns the facility and the first active resident, in repository order,
// whose stored PIN hash verifies against pin.
func (m *CredentialMatcher) Match(ctx context.Context, slug, pin string) (*domain.Tenant, *domain.Resident, error) {
	tenant, err := m.tenants.GetActiveBySlug(ctx, NormalizeSlug(slug))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrTenantNotFound
		}
		return nil, nil, err
	}

	residents, err := m.residents.ListActiveByTenant(ctx, tenant.TenantID)
	if err != nil {
		return nil, nil, err
	}

	// An index hit bounds the scan; residents ordered before it are still checked
	// so the first match in repository order wins.
	hint := m.indexHint(ctx, tenant.TenantID, pin, residents)
	bound := len(residents)
	if hint >= 0 {
		bound = hint + 1
	}
	i := m.firstMatch(tenant.TenantID, pin, residents[:bound])
	if i < 0 && hint >= 0 {
		m.forget(ctx, tenant.TenantID, pin)
		if j := m.firstMatch(tenant.TenantID, pin, residents[bound:]); j >= 0 {
			i = bound + j
		}
	}
	if i < 0 {
		return tenant, nil, ErrPINIncorrect
	}
	if i == hint {
		metrics.ObserveResidentLogin(metrics.LoginIndexHit)
	} else {
		m.remember(ctx, tenant.TenantID, pin, residents[i].ResidentID)
	}
	return tenant, residents[i], nil
}

// firstMatch returns the position of the first resident whose PIN hash verifies, or -1.
func (m *CredentialMatcher) firstMatch(tenantID, pin string, residents []*domain.Resident) int {
	for i, r := range residents {
		if r.PINHash == "" {
			continue
		}
		if !IsBcryptHash(r.PINHash) {
			m.logger.Warn("Skipping resident with malformed PIN hash",
				zap.String("tenant_id", tenantID),
				zap.String("resident_id", r.ResidentID),
				zap.String("reason", "malformed_pin_hash"),
			)
			metrics.PINHashSkipped()
			continue
		}
		err := bcrypt.CompareHashAndPassword([]byte(r.PINHash), []byte(pin))
		if err == nil {
			return i
		}
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			m.logger.Warn("PIN hash could not be verified",
				zap.String("tenant_id", tenantID),
				zap.String("resident_id", r.ResidentID),
				zap.String("reason", "pin_compare_failed"),
				zap.Error(err),
			)
		}
	}
	return -1
}

// indexHint returns the position of the indexed resident among the active residents, or -1.
// Entries naming a resident that is no longer active are dropped.
func (m *CredentialMatcher) indexHint(ctx context.Context, tenantID, pin string, residents []*domain.Resident) int {
	if m.index == nil {
		return -1
	}
	id, err := m.index.Lookup(ctx, tenantID, pin)
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			m.logger.Warn("PIN index lookup failed", zap.String("tenant_id", tenantID), zap.Error(err))
		}
		return -1
	}
	for i, r := range residents {
		if r.ResidentID == id {
			return i
		}
	}
	m.forget(ctx, tenantID, pin)
	return -1
}

func (m *CredentialMatcher) forget(ctx context.Context, tenantID, pin string) {
	if err := m.index.Forget(ctx, tenantID, pin); err != nil {
		m.logger.Warn("PIN index cleanup failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

func (m *CredentialMatcher) remember(ctx context.Context, tenantID, pin, residentID string) {
	if m.index == nil {
		return
	}
	if err := m.index.Remember(ctx, tenantID, pin, residentID); err != nil {
		m.logger.Warn("PIN index write failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}
