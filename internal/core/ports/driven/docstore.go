package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DocumentStore persists document records keyed by (owner, document ID).
// Backed by SQLite for metadata storage.
type DocumentStore interface {
	// Get retrieves the record of a document for an owner.
	// Returns domain.ErrNotFound if the owner has no such document.
	Get(ctx context.Context, owner, id string) (*domain.DocumentRecord, error)

	// Create inserts a new record.
	// Returns domain.ErrAlreadyExists if (owner, id) is taken.
	Create(ctx context.Context, record *domain.DocumentRecord) error

	// MarkIndexed flags the record as indexed with the given chunk count.
	MarkIndexed(ctx context.Context, owner, id string, chunks int) error

	// List returns all records of an owner, newest first.
	List(ctx context.Context, owner string) ([]domain.DocumentRecord, error)

	// Delete removes a record.
	Delete(ctx context.Context, owner, id string) error
}

// SummaryStore persists one summary record per (owner, document).
type SummaryStore interface {
	// Get retrieves the current summary.
	// Returns domain.ErrNotFound if none exists.
	Get(ctx context.Context, owner, documentID string) (*domain.Summary, error)

	// Upsert replaces the current summary.
	Upsert(ctx context.Context, summary *domain.Summary) error
}
