package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"altenheim-avatar/internal/auth"
	"altenheim-avatar/internal/domain"
	"altenheim-avatar/internal/events"
	"altenheim-avatar/internal/repository"
)

// fixture is a two-facility world on in-memory repositories.
type fixture struct {
	tenants       *repository.MemoryTenantsRepository
	users         *repository.MemoryUsersRepository
	residents     *repository.MemoryResidentsRepository
	biographies   *repository.MemoryBiographiesRepository
	usage         *repository.MemoryUsageRepository
	conversations *countingConversations
	events        *recordingPublisher
	gate          *AccessGate

	home, other     string // tenant ids
	gertrud, walter *domain.Resident
	stranger        *domain.Resident // lives in the other facility
}

func hashPIN(t *testing.T, pin string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		tenants:   repository.NewMemoryTenantsRepository(),
		users:     repository.NewMemoryUsersRepository(),
		residents: repository.NewMemoryResidentsRepository(),
		usage:     repository.NewMemoryUsageRepository(),
		events:    &recordingPublisher{},
	}
	f.biographies = repository.NewMemoryBiographiesRepository(f.residents)
	f.conversations = &countingConversations{MemoryConversationsRepository: repository.NewMemoryConversationsRepository(f.usage)}
	f.gate = NewAccessGate(f.residents, f.conversations)

	var err error
	f.home, err = f.tenants.UpsertTenant(ctx, &domain.Tenant{Name: "Seniorenresidenz Sonnenschein", Slug: "sonnenschein"})
	require.NoError(t, err)
	f.other, err = f.tenants.UpsertTenant(ctx, &domain.Tenant{Name: "Haus am See", Slug: "haus-am-see"})
	require.NoError(t, err)

	f.gertrud = f.addResident(t, f.home, "Gertrud", "Trudel", "1234")
	f.walter = f.addResident(t, f.home, "Walter", "", "5678")
	f.stranger = f.addResident(t, f.other, "Erna", "", "1234")

	_, err = f.biographies.Upsert(ctx, &domain.Biography{ResidentID: f.gertrud.ResidentID, Category: domain.BioHobbies, Key: "Stricken", Value: "Socken für die Enkel"})
	require.NoError(t, err)
	return f
}

func (f *fixture) addResident(t *testing.T, tenantID, first, display, pin string) *domain.Resident {
	t.Helper()
	ctx := context.Background()
	id, err := f.residents.CreateResident(ctx, &domain.Resident{
		TenantID:    tenantID,
		FirstName:   first,
		DisplayName: display,
		PINHash:     hashPIN(t, pin),
	})
	require.NoError(t, err)
	r, err := f.residents.GetResident(ctx, id)
	require.NoError(t, err)
	return r
}

func (f *fixture) caregiver() *auth.Identity {
	return &auth.Identity{TenantID: f.home, Role: domain.RoleCaregiver, UserID: "u-caregiver"}
}

func (f *fixture) family() *auth.Identity {
	return &auth.Identity{TenantID: f.home, Role: domain.RoleFamily, UserID: "u-family"}
}

func (f *fixture) admin() *auth.Identity {
	return &auth.Identity{TenantID: f.home, Role: domain.RoleAdmin, UserID: "u-admin"}
}

func (f *fixture) foreignAdmin() *auth.Identity {
	return &auth.Identity{TenantID: f.other, Role: domain.RoleAdmin, UserID: "u-foreign"}
}

func residentIdentity(r *domain.Resident) *auth.Identity {
	return &auth.Identity{TenantID: r.TenantID, Role: domain.RoleResident, ResidentID: r.ResidentID}
}

func (f *fixture) chatService() *ChatService {
	return NewChatService(f.gate, f.conversations, f.biographies, f.events, ChatOptions{}, zap.NewNop())
}

// startConversation opens a conversation directly in the store.
func (f *fixture) startConversation(t *testing.T, r *domain.Resident, mode domain.ChatMode, turns int) *domain.Conversation {
	t.Helper()
	ctx := context.Background()
	c, err := f.conversations.MemoryConversationsRepository.Create(ctx, r.TenantID, r.ResidentID, mode)
	require.NoError(t, err)
	for i := 0; i < turns; i++ {
		role := domain.MessageRoleUser
		if i%2 == 1 {
			role = domain.MessageRoleAssistant
		}
		_, err := f.conversations.MemoryConversationsRepository.AppendMessage(ctx, c.ConversationID, role, "turn", nil)
		require.NoError(t, err)
	}
	return c
}

// countingConversations records which store operations were reached.
type countingConversations struct {
	*repository.MemoryConversationsRepository
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingConversations) count(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[op]++
}

func (c *countingConversations) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

func (c *countingConversations) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

func (c *countingConversations) Create(ctx context.Context, tenantID, residentID string, mode domain.ChatMode) (*domain.Conversation, error) {
	c.count("Create")
	return c.MemoryConversationsRepository.Create(ctx, tenantID, residentID, mode)
}

func (c *countingConversations) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	c.count("Get")
	return c.MemoryConversationsRepository.Get(ctx, id)
}

func (c *countingConversations) AppendMessage(ctx context.Context, id, role, content string, tokens *int) (*domain.Message, error) {
	c.count("AppendMessage")
	return c.MemoryConversationsRepository.AppendMessage(ctx, id, role, content, tokens)
}

func (c *countingConversations) End(ctx context.Context, id string) (*domain.Conversation, error) {
	c.count("End")
	return c.MemoryConversationsRepository.End(ctx, id)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	require.Error(t, err)
	var se *Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, kind, se.Kind, "error: %v", err)
	return se
}
