package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/views/documents"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	documentsView *documents.View
	chatView      *chat.View
	statusBar     *status.Bar

	// currentView tracks which view is active; previousView is where help returns to.
	currentView  messages.ViewType
	previousView messages.ViewType

	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	bar := status.NewBar(s, km)
	bar.SetMode(ports.Mode)

	return &App{
		ports:         ports,
		ctx:           context.Background(),
		styles:        s,
		keymap:        km,
		documentsView: documents.NewView(s, ports.Documents, ports.Owner),
		chatView:      chat.NewView(s, ports.Answers, ports.Chat, ports.Summaries, ports.Owner, ports.Mode),
		statusBar:     bar,
		currentView:   messages.ViewDocuments,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("docqa"),
		a.documentsView.Init(),
		a.chatView.Init(),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message router
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.ViewChanged:
		a.currentView = msg.View
		a.statusBar.Clear()
		if msg.View == messages.ViewDocuments {
			a.statusBar.SetDocument("")
			return a, a.documentsView.Init()
		}
		return a, nil

	case messages.DocumentSelected:
		a.currentView = messages.ViewChat
		a.err = nil
		a.statusBar.Clear()
		a.statusBar.SetDocument(msg.Document.Name)
		return a, a.chatView.SetDocument(msg.Document)

	case messages.DocumentsLoaded, messages.DocumentDeleted:
		a.documentsView, cmd = a.documentsView.Update(msg)
		a.err = a.documentsView.Err()
		return a, cmd

	case messages.AnswerReceived, messages.SummaryLoaded, messages.ConversationReset:
		a.chatView, cmd = a.chatView.Update(msg)
		a.syncStatus()
		return a, cmd

	case messages.ModeChanged:
		a.statusBar.SetMode(msg.Mode)
		return a, nil

	case messages.ErrorOccurred:
		a.err = msg.Err
		a.statusBar.SetState(status.StateError)
		a.statusBar.SetMessage(msg.Err.Error())
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	// Spinner ticks, cursor blinks and the like go to the active view.
	switch a.currentView {
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewHelp:
	}
	return a, cmd
}

// handleKey routes key presses. Printable keys belong to the question
// input while chatting, so only ctrl+c quits from there.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	if k == "ctrl+c" {
		return a, tea.Quit
	}

	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewHelp:
		if keymap.Matches(k, a.keymap.Back) || keymap.Matches(k, a.keymap.Help) {
			a.currentView = a.previousView
			a.statusBar.Clear()
		}
		return a, nil

	case messages.ViewDocuments:
		if !a.documentsView.Confirming() {
			switch {
			case keymap.Matches(k, a.keymap.Quit):
				return a, tea.Quit
			case keymap.Matches(k, a.keymap.Help):
				a.showHelp()
				return a, nil
			}
		}
		a.documentsView, cmd = a.documentsView.Update(msg)
		return a, cmd

	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
		a.syncStatus()
		return a, cmd
	}
	return a, nil
}

func (a *App) showHelp() {
	a.previousView = a.currentView
	a.currentView = messages.ViewHelp
	a.statusBar.SetState(status.StateHelp)
}

// syncStatus mirrors the chat view's progress in the status bar.
func (a *App) syncStatus() {
	a.err = a.chatView.Err()
	switch {
	case a.chatView.Thinking():
		a.statusBar.SetState(status.StateThinking)
	case a.err != nil:
		a.statusBar.SetState(status.StateError)
		a.statusBar.SetMessage(a.err.Error())
	default:
		a.statusBar.Clear()
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var body string
	switch a.currentView {
	case messages.ViewChat:
		body = a.chatView.View()
	case messages.ViewHelp:
		body = a.viewHelp()
	default:
		body = a.documentsView.View()
	}
	return body + "\n" + a.statusBar.View()
}

// viewHelp renders every keybinding grouped by where it applies.
func (a *App) viewHelp() string {
	titles := []string{"Documents", "Chat", "General"}
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n\n")
	for i, group := range a.keymap.FullHelp() {
		b.WriteString(a.styles.Subtitle.Render(titles[i]))
		b.WriteString("\n")
		for _, binding := range group {
			b.WriteString(renderBinding(binding))
		}
		b.WriteString("\n")
	}
	b.WriteString(a.styles.Help.Render("[esc] back"))
	return b.String()
}

func renderBinding(b key.Binding) string {
	h := b.Help()
	return fmt.Sprintf("  %-12s %s\n", h.Key, h.Desc)
}

// Run starts the TUI and blocks until it exits or the context ends.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its first window size.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sizes the views, leaving a line for the status bar.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.statusBar.SetWidth(width)
	a.documentsView.SetDimensions(width, height-1)
	a.chatView.SetDimensions(width, height-1)
}
