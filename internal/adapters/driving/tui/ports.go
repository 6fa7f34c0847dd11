// Package tui provides an interactive terminal chat with indexed PDFs.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
type Ports struct {
	// Answers answers questions about a document.
	Answers driving.AnswerService

	// Documents lists and removes the owner's documents.
	Documents driving.DocumentService

	// Chat clears conversation memory.
	Chat driving.ChatService

	// Summaries is optional. Without it the summary key does nothing.
	Summaries driving.SummaryService

	// Owner is the identity the TUI acts as. Defaults to domain.LocalIdentity.
	Owner domain.Identity

	// Mode is the initial answer mode. Defaults to strict.
	Mode domain.AnswerMode
}

// Validate ensures the required ports are set and fills defaults.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Answers == nil {
		return ErrMissingAnswerService
	}
	if p.Documents == nil {
		return ErrMissingDocumentService
	}
	if p.Chat == nil {
		return ErrMissingChatService
	}
	if !p.Owner.IsValid() {
		p.Owner = domain.LocalIdentity
	}
	if p.Mode == "" {
		p.Mode = domain.AnswerModeStrict
	}
	return nil
}
