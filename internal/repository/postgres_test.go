package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"altenheim-avatar/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var (
	residentCols     = []string{"id", "facility_id", "first_name", "display_name", "pin", "address_form", "language", "cognitive_level", "avatar_name", "created_at", "active"}
	conversationCols = []string{"id", "resident_id", "mode", "started_at", "ended_at", "message_count", "mood_start", "mood_end", "summary", "flagged", "flag_reason"}
	biographyCols    = []string{"id", "resident_id", "category", "key", "value", "source", "created_at"}
)

func TestGetActiveBySlug(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresTenantsRepository(db)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM facilities\s+WHERE slug = \$1 AND active = TRUE`).
		WithArgs("sonnenschein").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "contact_email", "max_residents", "created_at", "active"}).
			AddRow("fac-1", "Seniorenheim Sonnenschein", "sonnenschein", "info@sonnenschein-heim.de", 50, created, true))

	tenant, err := repo.GetActiveBySlug(context.Background(), "sonnenschein")
	require.NoError(t, err)
	assert.Equal(t, "fac-1", tenant.TenantID)
	assert.Equal(t, 50, tenant.MaxResidents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveBySlug_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresTenantsRepository(db)

	mock.ExpectQuery(`FROM facilities`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetActiveBySlug(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveByEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUsersRepository(db)

	mock.ExpectQuery(`FROM users\s+WHERE email = \$1 AND active = TRUE`).
		WithArgs("pfleger@sonnenschein-heim.de").
		WillReturnRows(sqlmock.NewRows([]string{"id", "facility_id", "email", "password_hash", "name", "role", "active"}).
			AddRow("u-1", "fac-1", "pfleger@sonnenschein-heim.de", "$2a$10$hash", "Thomas Weber", "caregiver", true))

	u, err := repo.GetActiveByEmail(context.Background(), "pfleger@sonnenschein-heim.de")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCaregiver, u.Role)
	assert.Equal(t, "fac-1", u.TenantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveByTenant_KeepsOrderAndBlankPins(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresResidentsRepository(db)
	now := time.Now()

	mock.ExpectQuery(`FROM residents\s+WHERE facility_id = \$1::uuid AND active = TRUE\s+ORDER BY created_at ASC, id ASC`).
		WithArgs("fac-1").
		WillReturnRows(sqlmock.NewRows(residentCols).
			AddRow("r-1", "fac-1", "Gertrud", "Trudel", "$2a$10$x", "du", "de", "mild_impairment", "Anni", now, true).
			AddRow("r-2", "fac-1", "Walter", "", "", "sie", "de", "normal", "Anni", now, true))

	list, err := repo.ListActiveByTenant(context.Background(), "fac-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Trudel", list[0].Name())
	assert.Equal(t, "Walter", list[1].Name())
	assert.Empty(t, list[1].PINHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetResident_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresResidentsRepository(db)

	mock.ExpectQuery(`FROM residents WHERE id = \$1::uuid`).
		WithArgs("r-x").
		WillReturnRows(sqlmock.NewRows(residentCols))

	_, err := repo.GetResident(context.Background(), "r-x")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateResident_AppliesDefaults(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresResidentsRepository(db)

	mock.ExpectQuery(`INSERT INTO residents`).
		WithArgs("fac-1", "Helga", "", "$2a$10$h", "du", "de", "normal", "Anni").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r-3"))

	id, err := repo.CreateResident(context.Background(), &domain.Resident{TenantID: "fac-1", FirstName: "Helga", PINHash: "$2a$10$h"})
	require.NoError(t, err)
	assert.Equal(t, "r-3", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationCreate_CountsUsage(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresConversationsRepository(db)
	started := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO conversations`).
		WithArgs("r-1", "companion").
		WillReturnRows(sqlmock.NewRows([]string{"id", "started_at"}).AddRow("c-1", started))
	mock.ExpectExec(`INSERT INTO usage_stats`).
		WithArgs("fac-1", sqlmock.AnyArg(), 1, 0, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, err := repo.Create(context.Background(), "fac-1", "r-1", domain.ModeCompanion)
	require.NoError(t, err)
	assert.Equal(t, "c-1", c.ConversationID)
	assert.Equal(t, domain.ModeCompanion, c.Mode)
	assert.Zero(t, c.MessageCount)
	assert.Nil(t, c.EndedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationGet_MapsEndedAt(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresConversationsRepository(db)
	started := time.Now().Add(-time.Hour)
	ended := time.Now()

	mock.ExpectQuery(`FROM conversations WHERE id = \$1::uuid`).
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows(conversationCols).
			AddRow("c-1", "r-1", "staff", started, ended, 4, "", "", "", false, ""))

	c, err := repo.Get(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeStaff, c.Mode)
	require.NotNil(t, c.EndedAt)
	assert.True(t, c.Ended())
	assert.Equal(t, 4, c.MessageCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistory_OldestFirstAndCapped(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresConversationsRepository(db)

	mock.ExpectQuery(`FROM messages\s+WHERE conversation_id = \$1::uuid\s+ORDER BY created_at ASC\s+LIMIT \$2`).
		WithArgs("c-1", MaxHistoryLimit).
		WillReturnRows(sqlmock.NewRows([]string{"role", "content"}).
			AddRow("user", "Guten Morgen").
			AddRow("assistant", "Guten Morgen, Trudel!"))

	h, err := repo.History(context.Background(), "c-1", 500)
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, "user", h[0].Role)
	assert.Equal(t, "assistant", h[1].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendMessage(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresConversationsRepository(db)

	mock.ExpectQuery(`INSERT INTO messages`).
		WithArgs("c-1", "user", "Hallo", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("m-1", time.Now()))

	m, err := repo.AppendMessage(context.Background(), "c-1", domain.MessageRoleUser, "Hallo", nil)
	require.NoError(t, err)
	assert.Equal(t, "m-1", m.MessageID)
	assert.Nil(t, m.TokensUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordCompletion_SingleTransaction(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresConversationsRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO messages`).
		WithArgs("c-1", "assistant", "Schön, dass du da bist.", 42).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("m-2", time.Now()))
	mock.ExpectExec(`UPDATE conversations SET message_count = \$2`).
		WithArgs("c-1", 6).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO usage_stats`).
		WithArgs("fac-1", sqlmock.AnyArg(), 0, 2, 42).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	m, err := repo.RecordCompletion(context.Background(), Completion{
		TenantID:       "fac-1",
		ConversationID: "c-1",
		Reply:          "Schön, dass du da bist.",
		TokensUsed:     42,
		MessageCount:   6,
	})
	require.NoError(t, err)
	require.NotNil(t, m.TokensUsed)
	assert.Equal(t, 42, *m.TokensUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordCompletion_RollsBackOnFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresConversationsRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO messages`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("m-2", time.Now()))
	mock.ExpectExec(`UPDATE conversations SET message_count`).
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	_, err := repo.RecordCompletion(context.Background(), Completion{TenantID: "fac-1", ConversationID: "c-1", Reply: "x", MessageCount: 2})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnd_ReturnsRecord(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresConversationsRepository(db)
	now := time.Now()

	mock.ExpectQuery(`UPDATE conversations\s+SET ended_at = COALESCE\(ended_at, now\(\)\)`).
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows(conversationCols).
			AddRow("c-1", "r-1", "companion", now.Add(-time.Minute), now, 2, "", "", "", false, ""))

	c, err := repo.End(context.Background(), "c-1")
	require.NoError(t, err)
	assert.True(t, c.Ended())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByResident_NewestFirst(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresConversationsRepository(db)
	now := time.Now()

	mock.ExpectQuery(`ORDER BY started_at DESC\s+LIMIT \$2`).
		WithArgs("r-1", 20).
		WillReturnRows(sqlmock.NewRows(conversationCols).
			AddRow("c-2", "r-1", "companion", now, nil, 0, "", "", "", false, "").
			AddRow("c-1", "r-1", "companion", now.Add(-time.Hour), now, 4, "", "", "", false, ""))

	list, err := repo.ListByResident(context.Background(), "r-1", 20)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.False(t, list[0].Ended())
	assert.True(t, list[1].Ended())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessages_NullableTokens(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresConversationsRepository(db)
	now := time.Now()

	mock.ExpectQuery(`FROM messages\s+WHERE conversation_id = \$1::uuid\s+ORDER BY created_at ASC`).
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_id", "role", "content", "mood_detected", "tokens_used", "created_at"}).
			AddRow("m-1", "c-1", "user", "Hallo", "", nil, now).
			AddRow("m-2", "c-1", "assistant", "Hallo!", "", 17, now.Add(time.Second)))

	msgs, err := repo.Messages(context.Background(), "c-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Nil(t, msgs[0].TokensUsed)
	require.NotNil(t, msgs[1].TokensUsed)
	assert.Equal(t, 17, *msgs[1].TokensUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBiographyUpsert(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresBiographiesRepository(db)

	mock.ExpectQuery(`ON CONFLICT \(resident_id, category, key\) DO UPDATE`).
		WithArgs("r-1", "hobbies", "Garten", "Rosen", "manual").
		WillReturnRows(sqlmock.NewRows(biographyCols).AddRow("b-1", "r-1", "hobbies", "Garten", "Rosen", "manual", time.Now()))

	b, err := repo.Upsert(context.Background(), &domain.Biography{ResidentID: "r-1", Category: "hobbies", Key: "Garten", Value: "Rosen"})
	require.NoError(t, err)
	assert.Equal(t, "b-1", b.BiographyID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBiographyGetWithTenant(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresBiographiesRepository(db)

	mock.ExpectQuery(`JOIN residents r ON r.id = b.resident_id`).
		WithArgs("b-1").
		WillReturnRows(sqlmock.NewRows(append(biographyCols, "facility_id")).
			AddRow("b-1", "r-1", "family", "Tochter", "Sabine", "manual", time.Now(), "fac-1"))

	b, tenantID, err := repo.GetWithTenant(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, "fac-1", tenantID)
	assert.Equal(t, "Sabine", b.Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBiographyUpdate_Conflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresBiographiesRepository(db)
	key := "Sohn"

	mock.ExpectQuery(`UPDATE biographies SET`).
		WithArgs("b-1", nil, "Sohn", nil).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Update(context.Background(), "b-1", BiographyUpdate{Key: &key})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBiographyDelete_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresBiographiesRepository(db)

	mock.ExpectExec(`DELETE FROM biographies`).WithArgs("b-x").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "b-x")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageListByTenant(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUsageRepository(db)
	month := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM usage_stats`).
		WithArgs("fac-1", 12).
		WillReturnRows(sqlmock.NewRows([]string{"facility_id", "month", "total_conversations", "total_messages", "total_tokens"}).
			AddRow("fac-1", month, 3, 12, 900))

	list, err := repo.ListByTenant(context.Background(), "fac-1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 900, list[0].TotalTokens)
	assert.NoError(t, mock.ExpectationsWereMet())
}
