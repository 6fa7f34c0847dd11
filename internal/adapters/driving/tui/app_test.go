package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(newTestPorts())
	require.NoError(t, err)
	app.SetDimensions(100, 30)
	return app
}

func update(app *App, msg tea.Msg) tea.Cmd {
	_, cmd := app.Update(msg)
	return cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func openChat(t *testing.T, app *App) {
	t.Helper()
	update(app, messages.DocumentSelected{Document: domain.DocumentRecord{ID: "a", Name: "alpha.pdf", Indexed: true}})
	require.Equal(t, messages.ViewChat, app.CurrentView())
}

func TestNewApp_StartsOnDocuments(t *testing.T) {
	app, err := NewApp(newTestPorts())

	require.NoError(t, err)
	assert.Equal(t, messages.ViewDocuments, app.CurrentView())
	assert.False(t, app.Ready())
	assert.Equal(t, "Initialising...", app.View())
	assert.NotNil(t, app.Init())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{})

	assert.ErrorIs(t, err, ErrMissingAnswerService)
	assert.Nil(t, app)
}

func TestApp_WithContext(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.Same(t, app, app.WithContext(ctx))
}

func TestApp_WindowSize(t *testing.T) {
	app, _ := NewApp(newTestPorts())

	update(app, tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.True(t, app.Ready())
	assert.Equal(t, 120, app.statusBar.Width())
}

func TestApp_InitLoadsDocumentsForLocalOwner(t *testing.T) {
	ports := newTestPorts()
	app, err := NewApp(ports)
	require.NoError(t, err)

	msg := app.documentsView.Init()()
	update(app, msg)
	app.SetDimensions(100, 30)

	docs := ports.Documents.(*mockDocuments)
	assert.Equal(t, []domain.Identity{domain.LocalIdentity}, docs.owners)
	assert.Contains(t, app.View(), "alpha.pdf")
}

func TestApp_QuitFromDocuments(t *testing.T) {
	app := newTestApp(t)

	assert.True(t, isQuit(update(app, runes("q"))))
	assert.True(t, isQuit(update(app, tea.KeyMsg{Type: tea.KeyCtrlC})))
	assert.True(t, isQuit(update(app, messages.Quit{})))
}

func TestApp_QTypesInChat(t *testing.T) {
	app := newTestApp(t)
	openChat(t, app)

	cmd := update(app, runes("q"))

	assert.False(t, isQuit(cmd))
	assert.Equal(t, messages.ViewChat, app.CurrentView())
	assert.True(t, isQuit(update(app, tea.KeyMsg{Type: tea.KeyCtrlC})))
}

func TestApp_HelpToggle(t *testing.T) {
	app := newTestApp(t)

	update(app, runes("?"))
	assert.Equal(t, messages.ViewHelp, app.CurrentView())
	assert.Equal(t, status.StateHelp, app.statusBar.State())
	assert.Contains(t, app.View(), "ctrl+t")

	update(app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewDocuments, app.CurrentView())
}

func TestApp_DocumentSelectedOpensChat(t *testing.T) {
	app := newTestApp(t)

	openChat(t, app)

	assert.Equal(t, "alpha.pdf", app.statusBar.Document())
	assert.Contains(t, app.View(), "Chat - alpha.pdf")
}

func TestApp_AnswerFlowsToChat(t *testing.T) {
	app := newTestApp(t)
	openChat(t, app)

	update(app, messages.AnswerReceived{Answer: &domain.Answer{
		Text: "Partly from the document.", Type: domain.AnswerTypeMixed, Confidence: domain.ConfidenceMixed,
	}})

	view := app.View()
	assert.Contains(t, view, "MIXED")
	assert.Contains(t, view, "Partly from the document.")
	assert.Equal(t, status.StateReady, app.statusBar.State())
}

func TestApp_AnswerErrorShownInStatus(t *testing.T) {
	app := newTestApp(t)
	openChat(t, app)

	update(app, messages.AnswerReceived{Err: domain.ErrLLMUnavailable})

	assert.ErrorIs(t, app.Err(), domain.ErrLLMUnavailable)
	assert.Equal(t, status.StateError, app.statusBar.State())
}

func TestApp_ModeChangedUpdatesStatus(t *testing.T) {
	app := newTestApp(t)
	openChat(t, app)

	cmd := update(app, tea.KeyMsg{Type: tea.KeyCtrlT})
	require.NotNil(t, cmd)
	update(app, cmd())

	assert.Contains(t, app.statusBar.View(), "[hybrid]")
}

func TestApp_BackToDocuments(t *testing.T) {
	app := newTestApp(t)
	openChat(t, app)

	cmd := update(app, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	reload := update(app, cmd())

	assert.Equal(t, messages.ViewDocuments, app.CurrentView())
	assert.Empty(t, app.statusBar.Document())
	assert.NotNil(t, reload, "returning to the list reloads it")
}

func TestApp_ErrorOccurred(t *testing.T) {
	app := newTestApp(t)

	update(app, messages.ErrorOccurred{Err: errors.New("boom")})

	assert.EqualError(t, app.Err(), "boom")
	assert.Equal(t, status.StateError, app.statusBar.State())
	assert.Equal(t, "boom", app.statusBar.Message())
}
