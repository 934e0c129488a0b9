// Package export renders conversation transcripts as spreadsheets.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"altenheim-avatar/internal/domain"
)

const transcriptSheet = "Transcript"

var TranscriptHeader = []string{
	"Time",
	"Speaker",
	"Message",
	"Mood",
	"Tokens",
}

var transcriptColumnWidths = []float64{
	20, // Time
	18, // Speaker
	90, // Message
	12, // Mood
	10, // Tokens
}

// TranscriptMeta names the two speakers of a conversation.
type TranscriptMeta struct {
	UserLabel      string
	AssistantLabel string
}

// MetaFor returns the speaker labels for a conversation with resident r.
// In staff mode the user side is the staff member, not the resident.
func MetaFor(c *domain.Conversation, r *domain.Resident) TranscriptMeta {
	avatar := r.AvatarName
	if avatar == "" {
		avatar = domain.DefaultAvatarName
	}
	if c.Mode == domain.ModeStaff {
		return TranscriptMeta{UserLabel: "Staff", AssistantLabel: avatar}
	}
	return TranscriptMeta{UserLabel: r.Name(), AssistantLabel: avatar}
}

// WriteTranscript renders msgs, oldest first, into an xlsx workbook.
func WriteTranscript(meta TranscriptMeta, msgs []*domain.Message) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(transcriptSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create message style: %w", err)
	}

	for col, header := range TranscriptHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(transcriptSheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(transcriptSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(transcriptSheet, name, name, transcriptColumnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, m := range msgs {
		row := i + 2
		speaker := meta.UserLabel
		if m.Role == domain.MessageRoleAssistant {
			speaker = meta.AssistantLabel
		}
		values := []interface{}{
			m.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			speaker,
			m.Content,
			m.MoodDetected,
			nil,
		}
		if m.TokensUsed != nil {
			values[4] = *m.TokensUsed
		}
		start, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(transcriptSheet, start, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
		msgCell, _ := excelize.CoordinatesToCellName(3, row)
		if err := f.SetCellStyle(transcriptSheet, msgCell, msgCell, wrapStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set message style: %w", err)
		}
	}

	if err := f.SetPanes(transcriptSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}
