package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"altenheim-avatar/internal/domain"
	"altenheim-avatar/internal/events"
)

func (f *fixture) conversationService() ConversationService {
	return NewConversationService(f.gate, f.conversations, f.events, zap.NewNop())
}

func TestEnd_CrossTenantIsForbidden(t *testing.T) {
	f := newFixture(t)
	conv := f.startConversation(t, f.gertrud, domain.ModeCompanion, 2)

	_, err := f.conversationService().End(context.Background(), f.foreignAdmin(), conv.ConversationID)
	requireKind(t, err, KindForbidden)
	assert.Zero(t, f.conversations.Calls("End"))

	stored, err := f.conversations.Get(context.Background(), conv.ConversationID)
	require.NoError(t, err)
	assert.False(t, stored.Ended())
}

func TestEnd_OtherResidentIsForbidden(t *testing.T) {
	f := newFixture(t)
	conv := f.startConversation(t, f.gertrud, domain.ModeCompanion, 0)

	_, err := f.conversationService().End(context.Background(), residentIdentity(f.walter), conv.ConversationID)
	requireKind(t, err, KindForbidden)
	assert.Zero(t, f.conversations.Calls("End"))
}

func TestEnd_UnknownConversation(t *testing.T) {
	f := newFixture(t)
	_, err := f.conversationService().End(context.Background(), f.caregiver(), uuid.NewString())
	requireKind(t, err, KindNotFound)
}

func TestEnd_OwnerAndStaff(t *testing.T) {
	f := newFixture(t)
	svc := f.conversationService()
	ctx := context.Background()

	own := f.startConversation(t, f.gertrud, domain.ModeCompanion, 0)
	ended, err := svc.End(ctx, residentIdentity(f.gertrud), own.ConversationID)
	require.NoError(t, err)
	assert.True(t, ended.Ended())

	// family members are staff and may end conversations of their facility
	staff := f.startConversation(t, f.walter, domain.ModeStaff, 0)
	ended, err = svc.End(ctx, f.family(), staff.ConversationID)
	require.NoError(t, err)
	assert.True(t, ended.Ended())
	assert.Equal(t, []string{events.TypeConversationEnded, events.TypeConversationEnded}, f.events.types())
}

func TestEnd_AlreadyEndedIsNoOp(t *testing.T) {
	f := newFixture(t)
	svc := f.conversationService()
	ctx := context.Background()
	conv := f.startConversation(t, f.gertrud, domain.ModeCompanion, 0)

	first, err := svc.End(ctx, residentIdentity(f.gertrud), conv.ConversationID)
	require.NoError(t, err)
	second, err := svc.End(ctx, residentIdentity(f.gertrud), conv.ConversationID)
	require.NoError(t, err)

	assert.Equal(t, 1, f.conversations.Calls("End"))
	assert.Equal(t, first.EndedAt, second.EndedAt)
	assert.Len(t, f.events.types(), 1)
}

func TestListForResident(t *testing.T) {
	f := newFixture(t)
	svc := f.conversationService()
	ctx := context.Background()
	older := f.startConversation(t, f.gertrud, domain.ModeCompanion, 0)
	newer := f.startConversation(t, f.gertrud, domain.ModeStaff, 0)

	list, err := svc.ListForResident(ctx, f.caregiver(), f.gertrud.ResidentID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ConversationID, list[0].ConversationID)
	assert.Equal(t, older.ConversationID, list[1].ConversationID)

	_, err = svc.ListForResident(ctx, f.family(), f.gertrud.ResidentID)
	requireKind(t, err, KindForbidden)

	_, err = svc.ListForResident(ctx, f.foreignAdmin(), f.gertrud.ResidentID)
	requireKind(t, err, KindForbidden)

	_, err = svc.ListForResident(ctx, f.foreignAdmin(), uuid.NewString())
	requireKind(t, err, KindNotFound)

	_, err = svc.ListForResident(ctx, residentIdentity(f.gertrud), f.gertrud.ResidentID)
	requireKind(t, err, KindForbidden)
}

func TestListOwn(t *testing.T) {
	f := newFixture(t)
	svc := f.conversationService()
	ctx := context.Background()
	f.startConversation(t, f.gertrud, domain.ModeCompanion, 0)
	f.startConversation(t, f.walter, domain.ModeCompanion, 0)

	list, err := svc.ListOwn(ctx, residentIdentity(f.gertrud))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, f.gertrud.ResidentID, list[0].ResidentID)

	_, err = svc.ListOwn(ctx, f.caregiver())
	requireKind(t, err, KindForbidden)
}

func TestMessages(t *testing.T) {
	f := newFixture(t)
	svc := f.conversationService()
	ctx := context.Background()
	conv := f.startConversation(t, f.gertrud, domain.ModeCompanion, 3)

	msgs, err := svc.Messages(ctx, residentIdentity(f.gertrud), conv.ConversationID)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)

	msgs, err = svc.Messages(ctx, f.caregiver(), conv.ConversationID)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)

	_, err = svc.Messages(ctx, f.family(), conv.ConversationID)
	requireKind(t, err, KindForbidden)

	_, err = svc.Messages(ctx, residentIdentity(f.walter), conv.ConversationID)
	requireKind(t, err, KindForbidden)
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	svc := f.conversationService()
	ctx := context.Background()
	conv := f.startConversation(t, f.gertrud, domain.ModeCompanion, 2)

	data, name, err := svc.Export(ctx, f.admin(), conv.ConversationID)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".xlsx"))
	assert.Contains(t, name, conv.ConversationID[:8])

	book, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows("Transcript")
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, _, err = svc.Export(ctx, residentIdentity(f.gertrud), conv.ConversationID)
	requireKind(t, err, KindForbidden)
	_, _, err = svc.Export(ctx, f.foreignAdmin(), conv.ConversationID)
	requireKind(t, err, KindForbidden)
}
