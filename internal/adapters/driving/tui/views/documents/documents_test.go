package documents

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

var owner = domain.Identity{Subject: "alice"}

// MockDocumentService implements driving.DocumentService for testing.
type MockDocumentService struct {
	ListFunc   func(ctx context.Context, owner domain.Identity) ([]domain.DocumentRecord, error)
	DeleteFunc func(ctx context.Context, owner domain.Identity, id string) error
}

func (m *MockDocumentService) List(ctx context.Context, o domain.Identity) ([]domain.DocumentRecord, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, o)
	}
	return nil, nil
}

func (m *MockDocumentService) Get(context.Context, domain.Identity, string) (*domain.DocumentRecord, error) {
	return nil, domain.ErrNotFound
}

func (m *MockDocumentService) Delete(ctx context.Context, o domain.Identity, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, o, id)
	}
	return nil
}

func records() []domain.DocumentRecord {
	return []domain.DocumentRecord{
		{ID: "a", Name: "alpha.pdf", Indexed: true, ChunkCount: 3},
		{ID: "b", Name: "beta.pdf", Indexed: true, ChunkCount: 7},
		{ID: "c", Name: "gamma.pdf", Indexed: false},
	}
}

func loadedView(t *testing.T, svc *MockDocumentService) *View {
	t.Helper()
	v := NewView(nil, svc, owner)
	v, _ = v.Update(messages.DocumentsLoaded{Documents: records()})
	require.Len(t, v.Documents(), 3)
	return v
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestView_InitLoadsForOwner(t *testing.T) {
	var gotOwner domain.Identity
	svc := &MockDocumentService{
		ListFunc: func(_ context.Context, o domain.Identity) ([]domain.DocumentRecord, error) {
			gotOwner = o
			return records(), nil
		},
	}
	v := NewView(nil, svc, owner)

	cmd := v.Init()
	require.NotNil(t, cmd)
	assert.Contains(t, v.View(), "Loading documents...")

	msg, ok := cmd().(messages.DocumentsLoaded)
	require.True(t, ok)
	assert.Equal(t, owner, gotOwner)
	assert.Len(t, msg.Documents, 3)
}

func TestView_Navigation(t *testing.T) {
	v := loadedView(t, &MockDocumentService{})

	v, _ = v.Update(key("down"))
	v, _ = v.Update(key("j"))
	assert.Equal(t, 2, v.SelectedIndex())

	v, _ = v.Update(key("j"))
	assert.Equal(t, 2, v.SelectedIndex(), "stops at the last row")

	v, _ = v.Update(key("k"))
	v, _ = v.Update(key("up"))
	v, _ = v.Update(key("up"))
	assert.Equal(t, 0, v.SelectedIndex())
}

func TestView_SelectEmitsDocumentSelected(t *testing.T) {
	v := loadedView(t, &MockDocumentService{})
	v, _ = v.Update(key("j"))

	_, cmd := v.Update(key("enter"))
	require.NotNil(t, cmd)

	msg, ok := cmd().(messages.DocumentSelected)
	require.True(t, ok)
	assert.Equal(t, "b", msg.Document.ID)
}

func TestView_SelectUnindexedDocumentShowsError(t *testing.T) {
	v := loadedView(t, &MockDocumentService{})
	v, _ = v.Update(key("j"))
	v, _ = v.Update(key("j"))

	v, cmd := v.Update(key("enter"))

	assert.Nil(t, cmd)
	assert.ErrorIs(t, v.Err(), domain.ErrNotIndexed)
	assert.Contains(t, v.View(), "gamma.pdf")
}

func TestView_DeleteRequiresConfirmation(t *testing.T) {
	var deleted string
	svc := &MockDocumentService{
		DeleteFunc: func(_ context.Context, _ domain.Identity, id string) error {
			deleted = id
			return nil
		},
	}
	v := loadedView(t, svc)

	v, cmd := v.Update(key("x"))
	assert.Nil(t, cmd)
	assert.True(t, v.Confirming())
	assert.Contains(t, v.View(), "Delete alpha.pdf? [y/N]")

	v, cmd = v.Update(key("y"))
	require.NotNil(t, cmd)
	assert.False(t, v.Confirming())

	msg, ok := cmd().(messages.DocumentDeleted)
	require.True(t, ok)
	assert.Equal(t, "a", msg.DocumentID)
	assert.Equal(t, "a", deleted)

	_, cmd = v.Update(msg)
	assert.NotNil(t, cmd, "a successful delete reloads the list")
}

func TestView_DeleteCancelled(t *testing.T) {
	called := false
	svc := &MockDocumentService{
		DeleteFunc: func(context.Context, domain.Identity, string) error {
			called = true
			return nil
		},
	}
	v := loadedView(t, svc)

	v, _ = v.Update(key("x"))
	v, cmd := v.Update(key("n"))

	assert.Nil(t, cmd)
	assert.False(t, v.Confirming())
	assert.False(t, called)
}

func TestView_DeleteFailureKeepsList(t *testing.T) {
	v := loadedView(t, &MockDocumentService{})

	v, cmd := v.Update(messages.DocumentDeleted{DocumentID: "a", Err: domain.ErrAccessDenied})

	assert.Nil(t, cmd)
	assert.ErrorIs(t, v.Err(), domain.ErrAccessDenied)
	assert.Len(t, v.Documents(), 3)
}

func TestView_Reload(t *testing.T) {
	v := loadedView(t, &MockDocumentService{})

	_, cmd := v.Update(key("r"))

	require.NotNil(t, cmd)
	_, ok := cmd().(messages.DocumentsLoaded)
	assert.True(t, ok)
}

func TestView_LoadErrorAndEmpty(t *testing.T) {
	v := NewView(nil, &MockDocumentService{}, owner)

	v, _ = v.Update(messages.DocumentsLoaded{Err: errors.New("disk on fire")})
	assert.Contains(t, v.View(), "Error: disk on fire")

	v, _ = v.Update(messages.DocumentsLoaded{})
	assert.Contains(t, v.View(), "No documents yet")
	assert.Nil(t, v.SelectedDocument())
}

func TestView_SelectionClampedAfterShrink(t *testing.T) {
	v := loadedView(t, &MockDocumentService{})
	v, _ = v.Update(key("j"))
	v, _ = v.Update(key("j"))

	v, _ = v.Update(messages.DocumentsLoaded{Documents: records()[:1]})

	assert.Equal(t, 0, v.SelectedIndex())
}

func TestView_ScrollKeepsSelectionVisible(t *testing.T) {
	var many []domain.DocumentRecord
	for i := 0; i < 20; i++ {
		many = append(many, domain.DocumentRecord{ID: string(rune('a' + i)), Name: "doc.pdf", Indexed: true})
	}
	v := NewView(nil, &MockDocumentService{}, owner)
	v.SetDimensions(80, 10)
	v, _ = v.Update(messages.DocumentsLoaded{Documents: many})

	for i := 0; i < 5; i++ {
		v, _ = v.Update(key("j"))
	}

	assert.Equal(t, 5, v.SelectedIndex())
	assert.Equal(t, 4, v.scrollOffset)
	assert.Contains(t, v.View(), "of 20]")
}
