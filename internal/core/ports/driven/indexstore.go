package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// IndexArtifacts is the unit persisted for one document index:
// the serialised vector index and the chunk list at the same offsets.
type IndexArtifacts struct {
	// Vectors is the output of VectorIndex.MarshalBinary.
	Vectors []byte

	// Chunks holds Chunk i for vector offset i.
	Chunks []domain.Chunk
}

// IndexStore persists document indexes per (owner, document).
// Save is all-or-nothing: a reader sees either the previous unit or the new
// one, never a mix.
type IndexStore interface {
	// Save writes both artifacts, replacing any previous unit.
	Save(ctx context.Context, owner, documentID string, artifacts *IndexArtifacts) error

	// Load reads both artifacts.
	// Returns domain.ErrNotFound if no unit exists.
	Load(ctx context.Context, owner, documentID string) (*IndexArtifacts, error)

	// Exists reports whether a unit exists.
	Exists(ctx context.Context, owner, documentID string) (bool, error)

	// Delete removes the unit.
	Delete(ctx context.Context, owner, documentID string) error
}
