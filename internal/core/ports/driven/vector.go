package driven

import "context"

// NoMatch is the offset reported for a slot with no neighbour.
const NoMatch = -1

// VectorIndex provides exact nearest neighbour search over vectors stored
// at stable integer offsets. Offset i is the i-th vector ever added.
type VectorIndex interface {
	// Add appends vectors. Their offsets continue from Len().
	Add(ctx context.Context, vectors [][]float32) error

	// Search finds the k nearest vectors to query by squared Euclidean
	// distance, nearest first.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of stored vectors.
	Len() int

	// Dimension returns the vector size.
	Dimension() int

	// MarshalBinary serialises the index for durable storage.
	MarshalBinary() ([]byte, error)
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Offset is the position of the matched vector, or NoMatch.
	Offset int

	// Distance is the squared Euclidean distance to the query.
	Distance float32
}

// VectorIndexFactory creates and decodes vector indexes.
type VectorIndexFactory interface {
	// New returns an empty index for vectors of the given dimension.
	New(dimension int) (VectorIndex, error)

	// Decode restores an index produced by MarshalBinary.
	Decode(data []byte) (VectorIndex, error)
}
