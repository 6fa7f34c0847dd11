// Package chat provides the one-document conversation view for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// entry is one line of the transcript.
type entry struct {
	role   domain.ChatRole
	text   string
	answer *domain.Answer
}

// View is a conversation with a single document.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	answers   driving.AnswerService
	chat      driving.ChatService
	summaries driving.SummaryService
	owner     domain.Identity

	document       *domain.DocumentRecord
	conversationID string
	mode           domain.AnswerMode

	input    *input.QuestionInput
	viewport viewport.Model
	spinner  spinner.Model

	transcript []entry
	summary    *domain.Summary
	thinking   bool
	err        error

	width  int
	height int
}

// NewView creates a chat view. Summaries may be nil.
func NewView(
	s *styles.Styles,
	answers driving.AnswerService,
	chat driving.ChatService,
	summaries driving.SummaryService,
	owner domain.Identity,
	mode domain.AnswerMode,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if mode == "" {
		mode = domain.AnswerModeStrict
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Assistant

	v := &View{
		styles:    s,
		keymap:    keymap.DefaultKeyMap(),
		answers:   answers,
		chat:      chat,
		summaries: summaries,
		owner:     owner,
		mode:      mode,
		input:     input.NewQuestionInput(s),
		viewport:  viewport.New(80, 16),
		spinner:   sp,
	}
	v.SetDimensions(80, 24)
	return v
}

// Init starts the input cursor.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// SetDocument starts a fresh conversation with doc and loads its summary.
func (v *View) SetDocument(doc domain.DocumentRecord) tea.Cmd {
	v.document = &doc
	v.conversationID = "tui-" + uuid.NewString()
	v.transcript = nil
	v.summary = nil
	v.thinking = false
	v.err = nil
	v.refresh()
	return v.loadSummary(false, false)
}

// loadSummary fetches the summary. With generate set a missing summary is
// created; with force set it is regenerated.
func (v *View) loadSummary(generate, force bool) tea.Cmd {
	if v.summaries == nil || v.document == nil {
		return nil
	}
	svc, owner, id := v.summaries, v.owner, v.document.ID
	return func() tea.Msg {
		ctx := context.Background()
		if generate {
			s, err := svc.Summarize(ctx, owner, id, force)
			return messages.SummaryLoaded{Summary: s, Err: err}
		}
		s, err := svc.Get(ctx, owner, id)
		if errors.Is(err, domain.ErrNotFound) {
			return messages.SummaryLoaded{}
		}
		return messages.SummaryLoaded{Summary: s, Err: err}
	}
}

func (v *View) ask(text string) tea.Cmd {
	q := domain.Question{
		Owner:          v.owner,
		DocumentID:     v.document.ID,
		ConversationID: v.conversationID,
		Text:           text,
		Mode:           v.mode,
	}
	svc := v.answers
	return func() tea.Msg {
		answer, err := svc.Ask(context.Background(), q)
		return messages.AnswerReceived{Answer: answer, Err: err}
	}
}

func (v *View) reset() tea.Cmd {
	svc, who, id := v.chat, v.owner, v.conversationID
	return func() tea.Msg {
		return messages.ConversationReset{Err: svc.Reset(context.Background(), who, id)}
	}
}

// Update handles messages for the chat.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKey(msg)

	case messages.AnswerReceived:
		v.thinking = false
		if msg.Err != nil {
			v.err = msg.Err
		} else if msg.Answer != nil {
			v.err = nil
			v.transcript = append(v.transcript, entry{
				role:   domain.RoleAssistant,
				text:   msg.Answer.Text,
				answer: msg.Answer,
			})
		}
		v.refresh()
		return v, nil

	case messages.SummaryLoaded:
		v.thinking = false
		if msg.Err != nil {
			v.err = msg.Err
		} else if msg.Summary != nil {
			v.summary = msg.Summary
		}
		v.refresh()
		return v, nil

	case messages.ConversationReset:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.transcript = nil
		v.err = nil
		v.refresh()
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil

	case spinner.TickMsg:
		if !v.thinking {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()

	switch {
	case keymap.Matches(k, v.keymap.Back):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewDocuments} }

	case keymap.Matches(k, v.keymap.ScrollUp), keymap.Matches(k, v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd
	}

	if v.document == nil {
		return v, nil
	}

	switch {
	case keymap.Matches(k, v.keymap.Send):
		if v.thinking {
			return v, nil
		}
		text := v.input.Take()
		if text == "" {
			return v, nil
		}
		v.transcript = append(v.transcript, entry{role: domain.RoleUser, text: text})
		v.thinking = true
		v.err = nil
		v.refresh()
		return v, tea.Batch(v.spinner.Tick, v.ask(text))

	case keymap.Matches(k, v.keymap.ToggleMode):
		if v.mode == domain.AnswerModeHybrid {
			v.mode = domain.AnswerModeStrict
		} else {
			v.mode = domain.AnswerModeHybrid
		}
		mode := v.mode
		return v, func() tea.Msg { return messages.ModeChanged{Mode: mode} }

	case keymap.Matches(k, v.keymap.Summary):
		if v.summaries == nil || v.thinking {
			return v, nil
		}
		v.thinking = true
		return v, tea.Batch(v.spinner.Tick, v.loadSummary(true, v.summary != nil))

	case keymap.Matches(k, v.keymap.Reset):
		if v.thinking {
			return v, nil
		}
		return v, v.reset()
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (v *View) refresh() {
	v.viewport.SetContent(v.renderTranscript())
	v.viewport.GotoBottom()
}

func (v *View) renderTranscript() string {
	wrap := lipgloss.NewStyle().Width(max(v.width-2, 20))
	var b strings.Builder

	if v.summary != nil && v.summary.Overview != "" {
		b.WriteString(v.styles.Subtitle.Render("Summary"))
		b.WriteString("\n")
		b.WriteString(wrap.Render(v.styles.Muted.Render(v.summary.Overview)))
		b.WriteString("\n")
		if len(v.summary.SuggestedQuestions) > 0 {
			b.WriteString(v.styles.Muted.Render("Try asking:"))
			b.WriteString("\n")
			for _, q := range v.summary.SuggestedQuestions {
				b.WriteString(v.styles.Muted.Render("  - " + q))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}

	if len(v.transcript) == 0 {
		b.WriteString(v.styles.Muted.Render("No messages yet."))
		return b.String()
	}

	for i, e := range v.transcript {
		if i > 0 {
			b.WriteString("\n")
		}
		if e.role == domain.RoleUser {
			b.WriteString(v.styles.User.Render("You"))
			b.WriteString("\n")
			b.WriteString(wrap.Render(e.text))
			b.WriteString("\n")
			continue
		}

		b.WriteString(v.styles.Assistant.Render("Assistant"))
		if e.answer != nil {
			b.WriteString(" ")
			b.WriteString(v.styles.RenderBadge(e.answer.Type))
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf(" confidence %.1f", e.answer.Confidence)))
		}
		b.WriteString("\n")
		b.WriteString(wrap.Render(e.text))
		b.WriteString("\n")
		if e.answer != nil && len(e.answer.Sources) > 0 {
			b.WriteString(v.styles.Muted.Render("Sources: " + strings.Join(e.answer.Sources, ", ")))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// View renders the chat.
func (v *View) View() string {
	var b strings.Builder

	title := "Chat"
	if v.document != nil {
		title = "Chat - " + v.document.Name
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  mode: %s", v.mode)))
	b.WriteString("\n\n")

	b.WriteString(v.viewport.View())
	b.WriteString("\n")

	switch {
	case v.thinking:
		b.WriteString(v.spinner.View() + v.styles.Muted.Render(" thinking..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	}
	b.WriteString("\n")

	b.WriteString(v.input.View())
	return b.String()
}

// SetDimensions sizes the transcript around the title and input rows.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.viewport.Width = width
	v.viewport.Height = max(height-9, 3)
	v.input.SetWidth(width)
	v.refresh()
}

// Document returns the open document, or nil.
func (v *View) Document() *domain.DocumentRecord {
	return v.document
}

// ConversationID returns the id used for chat memory.
func (v *View) ConversationID() string {
	return v.conversationID
}

// Mode returns the current answer mode.
func (v *View) Mode() domain.AnswerMode {
	return v.mode
}

// Thinking reports whether a request is in flight.
func (v *View) Thinking() bool {
	return v.thinking
}

// Transcript returns the number of entries in the transcript.
func (v *View) Transcript() int {
	return len(v.transcript)
}

// Summary returns the loaded summary, or nil.
func (v *View) Summary() *domain.Summary {
	return v.summary
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
