package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestDefaultTheme_AccentsAreDistinct(t *testing.T) {
	theme := DefaultTheme()

	seen := make(map[lipgloss.Color]bool)
	for _, c := range []lipgloss.Color{theme.Primary, theme.Secondary, theme.Success, theme.Warning, theme.Error} {
		assert.NotEmpty(t, string(c))
		assert.False(t, seen[c], "duplicate colour %s", c)
		seen[c] = true
	}
}

func TestNewStyles_NilThemeUsesDefault(t *testing.T) {
	s := NewStyles(nil)

	require.NotNil(t, s.Theme())
	assert.Equal(t, DefaultTheme().Primary, s.Theme().Primary)
}

func TestStyles_TranscriptStylesInitialised(t *testing.T) {
	s := DefaultStyles()

	assert.NotEqual(t, lipgloss.Style{}, s.User)
	assert.NotEqual(t, lipgloss.Style{}, s.Assistant)
	assert.NotEqual(t, lipgloss.Style{}, s.Badge)
}

func TestStyles_BadgeColor(t *testing.T) {
	s := DefaultStyles()
	theme := s.Theme()

	tests := []struct {
		answerType domain.AnswerType
		expected   lipgloss.Color
	}{
		{domain.AnswerTypeDocument, theme.Success},
		{domain.AnswerTypeMixed, theme.Warning},
		{domain.AnswerTypeGeneralKnowledge, theme.Error},
		{domain.AnswerType("OTHER"), theme.Muted},
	}

	for _, tt := range tests {
		t.Run(string(tt.answerType), func(t *testing.T) {
			assert.Equal(t, tt.expected, s.BadgeColor(tt.answerType))
		})
	}
}

func TestStyles_RenderBadge(t *testing.T) {
	s := DefaultStyles()

	assert.Contains(t, s.RenderBadge(domain.AnswerTypeDocument), "DOCUMENT")
	assert.Contains(t, s.RenderBadge(domain.AnswerTypeGeneralKnowledge), "GENERAL KNOWLEDGE")
	assert.Contains(t, s.RenderBadge(""), "UNKNOWN")
}
