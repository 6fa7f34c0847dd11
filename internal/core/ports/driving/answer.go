package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// AnswerService answers questions about an indexed document.
type AnswerService interface {
	// Ask retrieves context, generates an answer, verifies it and records
	// the exchange in chat memory.
	Ask(ctx context.Context, q domain.Question) (*domain.Answer, error)

	// AskStream generates an unverified answer incrementally. The channel is
	// closed after a Done or Err event. History is written only when the
	// stream completes.
	AskStream(ctx context.Context, q domain.Question) (<-chan domain.StreamEvent, error)
}

// ChatService manages conversation history. Conversations belong to the
// owner that created them.
type ChatService interface {
	// History returns the owner's conversation in order.
	History(ctx context.Context, owner domain.Identity, conversationID string) ([]domain.ChatTurn, error)

	// Reset purges the owner's conversation immediately.
	Reset(ctx context.Context, owner domain.Identity, conversationID string) error
}

// SummaryService produces cached document summaries.
type SummaryService interface {
	// Get returns the current summary without generating one.
	Get(ctx context.Context, owner domain.Identity, documentID string) (*domain.Summary, error)

	// Summarize returns the current summary, generating it when missing or
	// when force is set.
	Summarize(ctx context.Context, owner domain.Identity, documentID string, force bool) (*domain.Summary, error)
}
