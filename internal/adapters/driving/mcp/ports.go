package mcp

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Answers answers questions about a document.
	Answers driving.AnswerService

	// Documents lists the owner's documents.
	Documents driving.DocumentService

	// Summaries produces document summaries. Optional.
	Summaries driving.SummaryService

	// Owner is the identity every tool call acts as. The MCP transports
	// carry no identity of their own.
	Owner domain.Identity
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Answers == nil {
		return ErrMissingAnswerService
	}
	if p.Documents == nil {
		return ErrMissingDocumentService
	}
	if !p.Owner.IsValid() {
		p.Owner = domain.LocalIdentity
	}
	return nil
}
