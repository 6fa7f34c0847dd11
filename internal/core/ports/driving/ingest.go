package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// IngestService turns uploaded documents into document indexes.
type IngestService interface {
	// Ingest indexes a document for its owner. Re-ingesting identical bytes
	// for the same owner returns AlreadyIndexed without recomputing anything,
	// unless the request forces a rebuild.
	Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error)
}

// DocumentService exposes an owner's document records.
type DocumentService interface {
	// List returns the owner's documents, newest first.
	List(ctx context.Context, owner domain.Identity) ([]domain.DocumentRecord, error)

	// Get returns one document record of the owner.
	Get(ctx context.Context, owner domain.Identity, id string) (*domain.DocumentRecord, error)

	// Delete removes the document index and record of the owner.
	Delete(ctx context.Context, owner domain.Identity, id string) error
}
