package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure the stores implement their interfaces.
var (
	_ driven.DocumentStore = (*DocumentStore)(nil)
	_ driven.SummaryStore  = (*SummaryStore)(nil)
)

// ownerKey scopes every record to its owner.
type ownerKey struct {
	owner string
	id    string
}

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu      sync.RWMutex
	records map[ownerKey]domain.DocumentRecord
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		records: make(map[ownerKey]domain.DocumentRecord),
	}
}

// Get retrieves the record of a document for an owner.
func (s *DocumentStore) Get(_ context.Context, owner, id string) (*domain.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[ownerKey{owner, id}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// Create inserts a new record.
func (s *DocumentStore) Create(_ context.Context, record *domain.DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ownerKey{record.Owner, record.ID}
	if _, ok := s.records[key]; ok {
		return domain.ErrAlreadyExists
	}
	rec := *record
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	s.records[key] = rec
	return nil
}

// MarkIndexed flags the record as indexed.
func (s *DocumentStore) MarkIndexed(_ context.Context, owner, id string, chunks int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ownerKey{owner, id}
	rec, ok := s.records[key]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Indexed = true
	rec.ChunkCount = chunks
	rec.UpdatedAt = time.Now()
	s.records[key] = rec
	return nil
}

// List returns all records of an owner, newest first.
func (s *DocumentStore) List(_ context.Context, owner string) ([]domain.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.DocumentRecord
	for key, rec := range s.records {
		if key.owner == owner {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (s *DocumentStore) Delete(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, ownerKey{owner, id})
	return nil
}

// SummaryStore is an in-memory implementation of driven.SummaryStore.
type SummaryStore struct {
	mu        sync.RWMutex
	summaries map[ownerKey]domain.Summary
}

// NewSummaryStore creates a new in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{
		summaries: make(map[ownerKey]domain.Summary),
	}
}

// Get retrieves the current summary.
func (s *SummaryStore) Get(_ context.Context, owner, documentID string) (*domain.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.summaries[ownerKey{owner, documentID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	sum.SuggestedQuestions = append([]string(nil), sum.SuggestedQuestions...)
	return &sum, nil
}

// Upsert replaces the current summary.
func (s *SummaryStore) Upsert(_ context.Context, summary *domain.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := *summary
	sum.SuggestedQuestions = append([]string(nil), summary.SuggestedQuestions...)
	s.summaries[ownerKey{summary.Owner, summary.DocumentID}] = sum
	return nil
}
