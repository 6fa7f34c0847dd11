package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService exposes an owner's document records.
type DocumentService struct {
	docs    driven.DocumentStore
	indexes driven.IndexStore
}

// NewDocumentService creates a new document service.
func NewDocumentService(docs driven.DocumentStore, indexes driven.IndexStore) *DocumentService {
	return &DocumentService{docs: docs, indexes: indexes}
}

// List returns the owner's documents, newest first.
func (s *DocumentService) List(ctx context.Context, owner domain.Identity) ([]domain.DocumentRecord, error) {
	if !owner.IsValid() {
		return nil, domain.ErrAccessDenied
	}
	return s.docs.List(ctx, owner.Subject)
}

// Get returns one document of the owner. Documents of other owners are
// reported as not found.
func (s *DocumentService) Get(ctx context.Context, owner domain.Identity, id string) (*domain.DocumentRecord, error) {
	if !owner.IsValid() {
		return nil, domain.ErrAccessDenied
	}
	return s.docs.Get(ctx, owner.Subject, id)
}

// Delete removes the owner's document index and then its record, so a
// failure part way leaves a record that re-ingestion repairs.
func (s *DocumentService) Delete(ctx context.Context, owner domain.Identity, id string) error {
	if !owner.IsValid() {
		return domain.ErrAccessDenied
	}
	if _, err := s.docs.Get(ctx, owner.Subject, id); err != nil {
		return err
	}
	if err := s.indexes.Delete(ctx, owner.Subject, id); err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	if err := s.docs.Delete(ctx, owner.Subject, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// readyDocument returns the owner's record once its index is usable.
func readyDocument(ctx context.Context, docs driven.DocumentStore, owner domain.Identity, id string) (*domain.DocumentRecord, error) {
	if !owner.IsValid() {
		return nil, domain.ErrAccessDenied
	}
	rec, err := docs.Get(ctx, owner.Subject, id)
	if err != nil {
		return nil, err
	}
	if !rec.Indexed {
		return nil, domain.ErrNotIndexed
	}
	return rec, nil
}
