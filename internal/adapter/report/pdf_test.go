package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/vericv/internal/domain"
)

func sampleData() domain.ReportData {
	return domain.ReportData{
		CV: domain.CV{
			ID:        "cv-1",
			Name:      "Jane Doe",
			Phone:     "+20 100 555 1234",
			City:      "Cairo",
			JobTitles: []string{"Backend Engineer", "", "Platform Engineer"},
		},
		Score:       75,
		GeneratedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRender_ProducesPDF(t *testing.T) {
	out, err := New("").Render(sampleData())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Greater(t, len(out), 500)
}

func TestRender_WithInterview(t *testing.T) {
	data := sampleData()
	data.Interview = &domain.VoiceInterview{
		Status:             domain.InterviewCompleted,
		SoftSkillsScore:    80,
		CommunicationScore: 85,
		ConfidenceScore:    70,
		Feedback:           "Clear and structured answers.",
		Suggestions:        "Give more concrete metrics.",
	}
	withIV, err := New("").Render(data)
	require.NoError(t, err)

	without, err := New("").Render(sampleData())
	require.NoError(t, err)
	assert.Greater(t, len(withIV), len(without))
}

func TestRender_MissingInfoUsesPlaceholder(t *testing.T) {
	out, err := New("").Render(domain.ReportData{GeneratedAt: time.Now()})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRender_BadFontPath(t *testing.T) {
	_, err := New("/nonexistent/font.ttf").Render(sampleData())
	require.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "vericv_report_abc.pdf", FileName("abc"))
}
