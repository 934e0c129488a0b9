package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"altenheim-avatar/internal/domain"
)

func TestWriteTranscript(t *testing.T) {
	tokens := 37
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	msgs := []*domain.Message{
		{Role: domain.MessageRoleUser, Content: "Guten Morgen!", CreatedAt: at},
		{Role: domain.MessageRoleAssistant, Content: "Guten Morgen, Trudel! Wie geht es dir?", TokensUsed: &tokens, CreatedAt: at.Add(3 * time.Second)},
	}
	conv := &domain.Conversation{Mode: domain.ModeCompanion}
	res := &domain.Resident{FirstName: "Gertrud", DisplayName: "Trudel", AvatarName: "Anni"}

	data, err := WriteTranscript(MetaFor(conv, res), msgs)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(transcriptSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, TranscriptHeader, rows[0])
	assert.Equal(t, "2024-05-01 09:30:00", rows[1][0])
	assert.Equal(t, "Trudel", rows[1][1])
	assert.Equal(t, "Guten Morgen!", rows[1][2])
	assert.Equal(t, "Anni", rows[2][1])
	assert.Equal(t, "37", rows[2][4])

	assert.Equal(t, []string{transcriptSheet}, f.GetSheetList())
}

func TestMetaFor_StaffMode(t *testing.T) {
	meta := MetaFor(&domain.Conversation{Mode: domain.ModeStaff}, &domain.Resident{FirstName: "Walter"})
	assert.Equal(t, "Staff", meta.UserLabel)
	assert.Equal(t, domain.DefaultAvatarName, meta.AssistantLabel)
}
