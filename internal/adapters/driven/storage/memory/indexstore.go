package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// IndexStore keeps document indexes in memory. Save swaps the whole unit
// under a lock, so readers never see a partial write.
type IndexStore struct {
	mu    sync.RWMutex
	units map[ownerKey]driven.IndexArtifacts
}

// NewIndexStore creates a new in-memory index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{
		units: make(map[ownerKey]driven.IndexArtifacts),
	}
}

// Save stores copies of both artifacts.
func (s *IndexStore) Save(_ context.Context, owner, documentID string, artifacts *driven.IndexArtifacts) error {
	unit := driven.IndexArtifacts{
		Vectors: slices.Clone(artifacts.Vectors),
		Chunks:  slices.Clone(artifacts.Chunks),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[ownerKey{owner, documentID}] = unit
	return nil
}

// Load returns copies of both artifacts.
func (s *IndexStore) Load(_ context.Context, owner, documentID string) (*driven.IndexArtifacts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	unit, ok := s.units[ownerKey{owner, documentID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &driven.IndexArtifacts{
		Vectors: slices.Clone(unit.Vectors),
		Chunks:  slices.Clone(unit.Chunks),
	}, nil
}

// Exists reports whether a unit exists.
func (s *IndexStore) Exists(_ context.Context, owner, documentID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.units[ownerKey{owner, documentID}]
	return ok, nil
}

// Delete removes the unit.
func (s *IndexStore) Delete(_ context.Context, owner, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.units, ownerKey{owner, documentID})
	return nil
}
