// Package documents provides the document picker view for the TUI.
package documents

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// View lists the owner's documents and opens one for chat.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	documents driving.DocumentService
	owner     domain.Identity

	records      []domain.DocumentRecord
	selected     int
	scrollOffset int
	confirming   bool
	loading      bool
	err          error

	width  int
	height int
}

// NewView creates a document picker.
func NewView(s *styles.Styles, documents driving.DocumentService, owner domain.Identity) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:    s,
		keymap:    keymap.DefaultKeyMap(),
		documents: documents,
		owner:     owner,
		width:     80,
		height:    24,
	}
}

// Init loads the document list.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.load()
}

func (v *View) load() tea.Cmd {
	svc, owner := v.documents, v.owner
	return func() tea.Msg {
		records, err := svc.List(context.Background(), owner)
		return messages.DocumentsLoaded{Documents: records, Err: err}
	}
}

func (v *View) remove(id string) tea.Cmd {
	svc, owner := v.documents, v.owner
	return func() tea.Msg {
		err := svc.Delete(context.Background(), owner, id)
		return messages.DocumentDeleted{DocumentID: id, Err: err}
	}
}

// Update handles messages for the picker.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case tea.KeyMsg:
		return v.handleKey(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		v.err = msg.Err
		v.records = msg.Documents
		if v.selected >= len(v.records) {
			v.selected = max(len(v.records)-1, 0)
		}
		v.adjustScroll()

	case messages.DocumentDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.loading = true
		return v, v.load()

	case messages.ErrorOccurred:
		v.err = msg.Err
	}
	return v, nil
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()

	if v.confirming {
		v.confirming = false
		if k == "y" {
			if doc := v.SelectedDocument(); doc != nil {
				return v, v.remove(doc.ID)
			}
		}
		return v, nil
	}

	switch {
	case keymap.Matches(k, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case keymap.Matches(k, v.keymap.Down):
		if v.selected < len(v.records)-1 {
			v.selected++
			v.adjustScroll()
		}
	case keymap.Matches(k, v.keymap.Select):
		doc := v.SelectedDocument()
		if doc == nil {
			return v, nil
		}
		if !doc.Indexed {
			v.err = fmt.Errorf("%s: %w", doc.Name, domain.ErrNotIndexed)
			return v, nil
		}
		selected := *doc
		return v, func() tea.Msg { return messages.DocumentSelected{Document: selected} }
	case keymap.Matches(k, v.keymap.Reload):
		v.loading = true
		v.err = nil
		return v, v.load()
	case keymap.Matches(k, v.keymap.Delete):
		if v.SelectedDocument() != nil {
			v.confirming = true
		}
	}
	return v, nil
}

func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visible {
		v.scrollOffset = v.selected - visible + 1
	}
}

// visibleItemCount reserves lines for the title, help and status bar.
func (v *View) visibleItemCount() int {
	return max(v.height-8, 1)
}

// View renders the picker.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Documents (%d)", len(v.records))))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
	case v.err != nil && len(v.records) == 0:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.records) == 0:
		b.WriteString(v.styles.Muted.Render("No documents yet. Add one with: docqa ingest <file.pdf>"))
	default:
		v.renderList(&b)
	}

	b.WriteString("\n\n")
	switch {
	case v.confirming:
		doc := v.SelectedDocument()
		b.WriteString(v.styles.Warning.Render(fmt.Sprintf("Delete %s? [y/N]", doc.Name)))
	case v.err != nil && len(v.records) > 0:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	default:
		b.WriteString(v.styles.Help.Render("[↑/↓] navigate  [enter] chat  [r] reload  [x] delete  [q] quit"))
	}
	return b.String()
}

func (v *View) renderList(b *strings.Builder) {
	visible := v.visibleItemCount()
	nameWidth := max(v.width/2, 16)

	end := min(v.scrollOffset+visible, len(v.records))
	for i := v.scrollOffset; i < end; i++ {
		doc := v.records[i]
		name := doc.Name
		if len(name) > nameWidth {
			name = name[:nameWidth-3] + "..."
		}

		state := fmt.Sprintf("%d chunks", doc.ChunkCount)
		if !doc.Indexed {
			state = "indexing"
		}

		if i == v.selected {
			b.WriteString(v.styles.Selected.Render(fmt.Sprintf("> %-*s  %s", nameWidth, name, state)))
		} else {
			b.WriteString(v.styles.Normal.Render(fmt.Sprintf("  %-*s  ", nameWidth, name)))
			b.WriteString(v.styles.Muted.Render(state))
		}
		b.WriteString("\n")
	}

	if len(v.records) > visible {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]", v.scrollOffset+1, end, len(v.records))))
	}
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.adjustScroll()
}

// Documents returns the loaded documents.
func (v *View) Documents() []domain.DocumentRecord {
	return v.records
}

// SelectedIndex returns the highlighted row.
func (v *View) SelectedIndex() int {
	return v.selected
}

// SelectedDocument returns the highlighted document, or nil.
func (v *View) SelectedDocument() *domain.DocumentRecord {
	if v.selected < len(v.records) {
		return &v.records[v.selected]
	}
	return nil
}

// Confirming reports whether a delete is awaiting confirmation.
func (v *View) Confirming() bool {
	return v.confirming
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
