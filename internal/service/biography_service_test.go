package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"altenheim-avatar/internal/domain"
)

func ptr(s string) *string { return &s }

func (f *fixture) biographyService() BiographyService {
	return NewBiographyService(f.gate, f.biographies, zap.NewNop())
}

func TestBiographyUpsert(t *testing.T) {
	f := newFixture(t)
	svc := f.biographyService()
	ctx := context.Background()

	b, err := svc.Upsert(ctx, f.caregiver(), f.walter.ResidentID, BiographyInput{
		Category: ptr(domain.BioCareer), Key: ptr(" Beruf "), Value: ptr("Schreinermeister"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Beruf", b.Key)
	assert.Equal(t, domain.BioSourceManual, b.Source)

	again, err := svc.Upsert(ctx, f.admin(), f.walter.ResidentID, BiographyInput{
		Category: ptr(domain.BioCareer), Key: ptr("Beruf"), Value: ptr("Schreinermeister mit eigener Werkstatt"), Source: domain.BioSourceConversation,
	})
	require.NoError(t, err)
	assert.Equal(t, b.BiographyID, again.BiographyID)

	list, err := svc.List(ctx, f.caregiver(), f.walter.ResidentID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Schreinermeister mit eigener Werkstatt", list[0].Value)
}

func TestBiographyUpsert_Rejected(t *testing.T) {
	f := newFixture(t)
	svc := f.biographyService()
	ctx := context.Background()
	valid := BiographyInput{Category: ptr(domain.BioHobbies), Key: ptr("Schach"), Value: ptr("Im Verein")}

	_, err := svc.Upsert(ctx, f.caregiver(), f.walter.ResidentID, BiographyInput{Category: ptr("gossip"), Key: ptr("x"), Value: ptr("y")})
	requireKind(t, err, KindValidation)

	_, err = svc.Upsert(ctx, f.caregiver(), f.walter.ResidentID, BiographyInput{Category: ptr(domain.BioHobbies), Key: ptr(""), Value: ptr("y")})
	requireKind(t, err, KindValidation)

	_, err = svc.Upsert(ctx, f.caregiver(), f.walter.ResidentID, BiographyInput{Category: ptr(domain.BioHobbies)})
	requireKind(t, err, KindValidation)

	_, err = svc.Upsert(ctx, f.family(), f.walter.ResidentID, valid)
	requireKind(t, err, KindForbidden)

	_, err = svc.Upsert(ctx, f.foreignAdmin(), f.walter.ResidentID, valid)
	requireKind(t, err, KindForbidden)

	_, err = svc.Upsert(ctx, f.caregiver(), uuid.NewString(), valid)
	requireKind(t, err, KindNotFound)
}

func TestBiographyUpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	svc := f.biographyService()
	ctx := context.Background()

	list, err := svc.List(ctx, f.caregiver(), f.gertrud.ResidentID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	entry := list[0]

	_, err = svc.Update(ctx, f.foreignAdmin(), entry.BiographyID, BiographyInput{Value: ptr("anders")})
	requireKind(t, err, KindForbidden)

	updated, err := svc.Update(ctx, f.caregiver(), entry.BiographyID, BiographyInput{Value: ptr("Socken und Schals")})
	require.NoError(t, err)
	assert.Equal(t, "Socken und Schals", updated.Value)
	assert.Equal(t, entry.Key, updated.Key)

	other, err := svc.Upsert(ctx, f.caregiver(), f.gertrud.ResidentID, BiographyInput{Category: ptr(domain.BioHobbies), Key: ptr("Singen"), Value: ptr("Kirchenchor")})
	require.NoError(t, err)
	_, err = svc.Update(ctx, f.caregiver(), other.BiographyID, BiographyInput{Key: ptr(entry.Key)})
	requireKind(t, err, KindValidation)

	require.NoError(t, svc.Delete(ctx, f.admin(), entry.BiographyID))
	err = svc.Delete(ctx, f.admin(), entry.BiographyID)
	requireKind(t, err, KindNotFound)

	err = svc.Delete(ctx, f.admin(), "not-a-uuid")
	requireKind(t, err, KindValidation)
}

func TestUsageService(t *testing.T) {
	f := newFixture(t)
	svc := NewUsageService(f.usage)
	ctx := context.Background()
	f.startConversation(t, f.gertrud, domain.ModeCompanion, 0)

	stats, err := svc.List(ctx, f.admin())
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].TotalConversations)

	_, err = svc.List(ctx, f.caregiver())
	requireKind(t, err, KindForbidden)

	stats, err = svc.List(ctx, f.foreignAdmin())
	require.NoError(t, err)
	assert.Empty(t, stats)
}
