// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewDocuments is the document picker.
	ViewDocuments ViewType = iota
	// ViewChat is the conversation with one document.
	ViewChat
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewDocuments:
		return "documents"
	case ViewChat:
		return "chat"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// DocumentsLoaded carries the owner's documents.
type DocumentsLoaded struct {
	Documents []domain.DocumentRecord
	Err       error
}

// DocumentSelected opens a chat with the document.
type DocumentSelected struct {
	Document domain.DocumentRecord
}

// DocumentDeleted reports the removal of a document.
type DocumentDeleted struct {
	DocumentID string
	Err        error
}

// QuestionAsked is sent when the user submits a question.
type QuestionAsked struct {
	Text string
}

// AnswerReceived carries the answer to the last question.
type AnswerReceived struct {
	Answer *domain.Answer
	Err    error
}

// SummaryLoaded carries the document summary. A nil Summary with a nil
// Err means none has been generated yet.
type SummaryLoaded struct {
	Summary *domain.Summary
	Err     error
}

// ConversationReset reports that the chat memory was cleared.
type ConversationReset struct {
	Err error
}

// ModeChanged is sent when the answer mode is toggled.
type ModeChanged struct {
	Mode domain.AnswerMode
}

// ErrorOccurred is sent when an error needs to be displayed.
type ErrorOccurred struct {
	Err error
}

// Quit is sent to exit the application.
type Quit struct{}
