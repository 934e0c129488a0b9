package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"altenheim-avatar/internal/domain"
)

// In-memory repositories back `serve --memory` for demos and the package tests
// of the layers above. They keep the ordering and conflict rules of the
// Postgres implementations.

type MemoryTenantsRepository struct {
	mu      sync.RWMutex
	tenants []*domain.Tenant
	now     func() time.Time
}

func NewMemoryTenantsRepository() *MemoryTenantsRepository {
	return &MemoryTenantsRepository{now: time.Now}
}

var _ TenantsRepository = (*MemoryTenantsRepository)(nil)

func (r *MemoryTenantsRepository) GetActiveBySlug(_ context.Context, slug string) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tenants {
		if t.Slug == slug && t.Active {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("facility: %w", ErrNotFound)
}

func (r *MemoryTenantsRepository) UpsertTenant(_ context.Context, tenant *domain.Tenant) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if t.Slug == tenant.Slug {
			t.Name = tenant.Name
			return t.TenantID, nil
		}
	}
	cp := *tenant
	if cp.TenantID == "" {
		cp.TenantID = uuid.NewString()
	}
	if cp.MaxResidents == 0 {
		cp.MaxResidents = 10
	}
	cp.Active = true
	cp.CreatedAt = r.now()
	r.tenants = append(r.tenants, &cp)
	return cp.TenantID, nil
}

type MemoryUsersRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User // email -> user
}

func NewMemoryUsersRepository() *MemoryUsersRepository {
	return &MemoryUsersRepository{users: map[string]*domain.User{}}
}

var _ UsersRepository = (*MemoryUsersRepository)(nil)

func (r *MemoryUsersRepository) GetActiveByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[email]
	if !ok || !u.Active {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryUsersRepository) UpsertUser(_ context.Context, user *domain.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[user.Email]; ok {
		u.PasswordHash = user.PasswordHash
		u.Name = user.Name
		u.Role = user.Role
		return u.UserID, nil
	}
	cp := *user
	if cp.UserID == "" {
		cp.UserID = uuid.NewString()
	}
	cp.Active = true
	r.users[cp.Email] = &cp
	return cp.UserID, nil
}

type MemoryResidentsRepository struct {
	mu        sync.RWMutex
	residents []*domain.Resident // creation order
	now       func() time.Time
}

func NewMemoryResidentsRepository() *MemoryResidentsRepository {
	return &MemoryResidentsRepository{now: time.Now}
}

var _ ResidentsRepository = (*MemoryResidentsRepository)(nil)

func (r *MemoryResidentsRepository) GetResident(_ context.Context, residentID string) (*domain.Resident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, res := range r.residents {
		if res.ResidentID == residentID {
			cp := *res
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("resident: %w", ErrNotFound)
}

func (r *MemoryResidentsRepository) ListActiveByTenant(_ context.Context, tenantID string) ([]*domain.Resident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Resident
	for _, res := range r.residents {
		if res.TenantID == tenantID && res.Active {
			cp := *res
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryResidentsRepository) CreateResident(_ context.Context, resident *domain.Resident) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *resident
	if cp.ResidentID == "" {
		cp.ResidentID = uuid.NewString()
	}
	if cp.AddressForm == "" {
		cp.AddressForm = domain.AddressFormDu
	}
	if cp.Language == "" {
		cp.Language = "de"
	}
	if cp.CognitiveLevel == "" {
		cp.CognitiveLevel = domain.CognitiveNormal
	}
	if cp.AvatarName == "" {
		cp.AvatarName = domain.DefaultAvatarName
	}
	cp.Active = true
	cp.CreatedAt = r.now()
	r.residents = append(r.residents, &cp)
	return cp.ResidentID, nil
}

// Deactivate marks a resident inactive.
func (r *MemoryResidentsRepository) Deactivate(residentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.residents {
		if res.ResidentID == residentID {
			res.Active = false
		}
	}
}

type MemoryBiographiesRepository struct {
	mu        sync.RWMutex
	entries   []*domain.Biography
	residents *MemoryResidentsRepository
	now       func() time.Time
}

func NewMemoryBiographiesRepository(residents *MemoryResidentsRepository) *MemoryBiographiesRepository {
	return &MemoryBiographiesRepository{residents: residents, now: time.Now}
}

var _ BiographiesRepository = (*MemoryBiographiesRepository)(nil)

func (r *MemoryBiographiesRepository) ListByResident(_ context.Context, residentID string) ([]*domain.Biography, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Biography
	for _, b := range r.entries {
		if b.ResidentID == residentID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (r *MemoryBiographiesRepository) Upsert(_ context.Context, b *domain.Biography) (*domain.Biography, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	source := b.Source
	if source == "" {
		source = domain.BioSourceManual
	}
	for _, e := range r.entries {
		if e.ResidentID == b.ResidentID && e.Category == b.Category && e.Key == b.Key {
			e.Value = b.Value
			e.Source = source
			cp := *e
			return &cp, nil
		}
	}
	e := &domain.Biography{
		BiographyID: uuid.NewString(),
		ResidentID:  b.ResidentID,
		Category:    b.Category,
		Key:         b.Key,
		Value:       b.Value,
		Source:      source,
		CreatedAt:   r.now(),
	}
	r.entries = append(r.entries, e)
	cp := *e
	return &cp, nil
}

func (r *MemoryBiographiesRepository) GetWithTenant(ctx context.Context, biographyID string) (*domain.Biography, string, error) {
	r.mu.RLock()
	var found *domain.Biography
	for _, e := range r.entries {
		if e.BiographyID == biographyID {
			cp := *e
			found = &cp
			break
		}
	}
	r.mu.RUnlock()
	if found == nil {
		return nil, "", fmt.Errorf("biography: %w", ErrNotFound)
	}
	res, err := r.residents.GetResident(ctx, found.ResidentID)
	if err != nil {
		return nil, "", err
	}
	return found, res.TenantID, nil
}

func (r *MemoryBiographiesRepository) Update(_ context.Context, biographyID string, upd BiographyUpdate) (*domain.Biography, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var target *domain.Biography
	for _, e := range r.entries {
		if e.BiographyID == biographyID {
			target = e
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("biography: %w", ErrNotFound)
	}
	next := *target
	if upd.Category != nil {
		next.Category = *upd.Category
	}
	if upd.Key != nil {
		next.Key = *upd.Key
	}
	if upd.Value != nil {
		next.Value = *upd.Value
	}
	for _, e := range r.entries {
		if e != target && e.ResidentID == next.ResidentID && e.Category == next.Category && e.Key == next.Key {
			return nil, fmt.Errorf("biography: %w", ErrConflict)
		}
	}
	*target = next
	cp := next
	return &cp, nil
}

func (r *MemoryBiographiesRepository) Delete(_ context.Context, biographyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.BiographyID == biographyID {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("biography: %w", ErrNotFound)
}

type MemoryUsageRepository struct {
	mu    sync.RWMutex
	stats map[string]map[time.Time]*domain.UsageStats // tenant -> month -> stats
}

func NewMemoryUsageRepository() *MemoryUsageRepository {
	return &MemoryUsageRepository{stats: map[string]map[time.Time]*domain.UsageStats{}}
}

var _ UsageRepository = (*MemoryUsageRepository)(nil)

func (r *MemoryUsageRepository) ListByTenant(_ context.Context, tenantID string, months int) ([]*domain.UsageStats, error) {
	if months <= 0 {
		months = 12
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.UsageStats
	for _, s := range r.stats[tenantID] {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.After(out[j].Month) })
	if len(out) > months {
		out = out[:months]
	}
	return out, nil
}

func (r *MemoryUsageRepository) add(tenantID string, at time.Time, conversations, messages, tokens int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	month := domain.MonthOf(at)
	byMonth, ok := r.stats[tenantID]
	if !ok {
		byMonth = map[time.Time]*domain.UsageStats{}
		r.stats[tenantID] = byMonth
	}
	s, ok := byMonth[month]
	if !ok {
		s = &domain.UsageStats{TenantID: tenantID, Month: month}
		byMonth[month] = s
	}
	s.TotalConversations += conversations
	s.TotalMessages += messages
	s.TotalTokens += tokens
}

type MemoryConversationsRepository struct {
	mu            sync.RWMutex
	conversations []*domain.Conversation
	messages      map[string][]*domain.Message
	usage         *MemoryUsageRepository
	now           func() time.Time
}

// NewMemoryConversationsRepository returns a repository that counts usage into usage, which may be nil.
func NewMemoryConversationsRepository(usage *MemoryUsageRepository) *MemoryConversationsRepository {
	return &MemoryConversationsRepository{
		messages: map[string][]*domain.Message{},
		usage:    usage,
		now:      time.Now,
	}
}

var _ ConversationsRepository = (*MemoryConversationsRepository)(nil)

func (r *MemoryConversationsRepository) Create(_ context.Context, tenantID, residentID string, mode domain.ChatMode) (*domain.Conversation, error) {
	now := r.now()
	c := &domain.Conversation{
		ConversationID: uuid.NewString(),
		ResidentID:     residentID,
		Mode:           mode,
		StartedAt:      now,
	}
	r.mu.Lock()
	r.conversations = append(r.conversations, c)
	r.mu.Unlock()
	if r.usage != nil {
		r.usage.add(tenantID, now, 1, 0, 0)
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryConversationsRepository) find(conversationID string) *domain.Conversation {
	for _, c := range r.conversations {
		if c.ConversationID == conversationID {
			return c
		}
	}
	return nil
}

func (r *MemoryConversationsRepository) Get(_ context.Context, conversationID string) (*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := r.find(conversationID)
	if c == nil {
		return nil, fmt.Errorf("conversation: %w", ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryConversationsRepository) History(_ context.Context, conversationID string, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 || limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.HistoryEntry{}
	for _, m := range r.messages[conversationID] {
		if len(out) == limit {
			break
		}
		out = append(out, domain.HistoryEntry{Role: m.Role, Content: m.Content})
	}
	return out, nil
}

func (r *MemoryConversationsRepository) AppendMessage(_ context.Context, conversationID, role, content string, tokensUsed *int) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appendLocked(conversationID, role, content, tokensUsed)
}

func (r *MemoryConversationsRepository) appendLocked(conversationID, role, content string, tokensUsed *int) (*domain.Message, error) {
	if r.find(conversationID) == nil {
		return nil, fmt.Errorf("conversation: %w", ErrNotFound)
	}
	m := &domain.Message{
		MessageID:      uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		TokensUsed:     tokensUsed,
		CreatedAt:      r.now(),
	}
	r.messages[conversationID] = append(r.messages[conversationID], m)
	cp := *m
	return &cp, nil
}

func (r *MemoryConversationsRepository) RecordCompletion(_ context.Context, c Completion) (*domain.Message, error) {
	r.mu.Lock()
	tokens := c.TokensUsed
	m, err := r.appendLocked(c.ConversationID, domain.MessageRoleAssistant, c.Reply, &tokens)
	if err == nil {
		r.find(c.ConversationID).MessageCount = c.MessageCount
	}
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if r.usage != nil {
		r.usage.add(c.TenantID, r.now(), 0, 2, c.TokensUsed)
	}
	return m, nil
}

func (r *MemoryConversationsRepository) End(_ context.Context, conversationID string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.find(conversationID)
	if c == nil {
		return nil, fmt.Errorf("conversation: %w", ErrNotFound)
	}
	if c.EndedAt == nil {
		now := r.now()
		c.EndedAt = &now
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryConversationsRepository) ListByResident(_ context.Context, residentID string, limit int) ([]*domain.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Conversation
	for i := len(r.conversations) - 1; i >= 0 && len(out) < limit; i-- {
		if c := r.conversations[i]; c.ResidentID == residentID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryConversationsRepository) Messages(_ context.Context, conversationID string) ([]*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Message
	for _, m := range r.messages[conversationID] {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}
