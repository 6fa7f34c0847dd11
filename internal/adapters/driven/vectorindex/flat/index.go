// Package flat provides an exact (brute force) vector index.
// It implements the driven.VectorIndex interface.
//
// Vectors live in one contiguous float32 slice; offset i is the i-th vector
// added. Search computes the squared Euclidean distance to every vector, so
// results are exact. For L2-normalised vectors the distance d relates to
// cosine similarity as sim = 1 - d/2.
package flat

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Serialisation header.
const (
	magic         = "DQFX"
	formatVersion = uint32(1)
	headerSize    = 4 + 4 + 4 + 8
)

// ErrDimensionMismatch is returned when a vector has the wrong length.
var ErrDimensionMismatch = errors.New("flat: dimension mismatch")

// ErrCorrupt is returned when serialised data cannot be decoded.
var ErrCorrupt = errors.New("flat: corrupt index data")

// Index is an exact nearest neighbour index.
type Index struct {
	mu        sync.RWMutex
	dimension int
	data      []float32
}

// New creates an empty index for vectors of the given dimension.
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("flat: dimension must be positive, got %d", dimension)
	}
	return &Index{dimension: dimension}, nil
}

// Add appends vectors. Their offsets continue from Len().
// Either all vectors are added or none are.
func (idx *Index) Add(_ context.Context, vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != idx.dimension {
			return fmt.Errorf("%w: vector %d has %d values, want %d", ErrDimensionMismatch, i, len(v), idx.dimension)
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, v := range vectors {
		idx.data = append(idx.data, v...)
	}
	return nil
}

// Search finds the k nearest vectors by squared Euclidean distance.
// When k exceeds Len(), the remaining slots carry driven.NoMatch.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: query has %d values, want %d", ErrDimensionMismatch, len(query), idx.dimension)
	}
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := len(idx.data) / idx.dimension
	hits := make([]driven.VectorHit, n)
	for i := 0; i < n; i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row := idx.data[i*idx.dimension : (i+1)*idx.dimension]
		hits[i] = driven.VectorHit{Offset: i, Distance: squaredL2(query, row)}
	}

	// Stable sort keeps lower offsets first on ties.
	slices.SortStableFunc(hits, func(a, b driven.VectorHit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})

	if k < len(hits) {
		return hits[:k], nil
	}
	for len(hits) < k {
		hits = append(hits, driven.VectorHit{Offset: driven.NoMatch, Distance: math.MaxFloat32})
	}
	return hits, nil
}

// Len returns the number of stored vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.data) / idx.dimension
}

// Dimension returns the vector size.
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Vector returns a copy of the vector at offset i.
func (idx *Index) Vector(i int) ([]float32, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if i < 0 || (i+1)*idx.dimension > len(idx.data) {
		return nil, false
	}
	return slices.Clone(idx.data[i*idx.dimension : (i+1)*idx.dimension]), true
}

// MarshalBinary encodes the index as a little-endian header followed by
// the raw vectors.
func (idx *Index) MarshalBinary() ([]byte, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	buf := make([]byte, headerSize+len(idx.data)*4)
	copy(buf[0:4], magic)
	binary.LittleEndian.PutUint32(buf[4:8], formatVersion)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(idx.dimension))
	binary.LittleEndian.PutUint64(buf[12:20], uint64(len(idx.data)/idx.dimension))

	body := buf[headerSize:]
	for i, f := range idx.data {
		binary.LittleEndian.PutUint32(body[i*4:], math.Float32bits(f))
	}
	return buf, nil
}

// Decode restores an index produced by MarshalBinary.
func Decode(data []byte) (*Index, error) {
	if len(data) < headerSize || string(data[0:4]) != magic {
		return nil, ErrCorrupt
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}

	dimension := int(binary.LittleEndian.Uint32(data[8:12]))
	count := binary.LittleEndian.Uint64(data[12:20])
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension %d", ErrCorrupt, dimension)
	}

	body := data[headerSize:]
	// Bound count first so the size product cannot wrap.
	if count > uint64(len(body))/4/uint64(dimension) || uint64(len(body)) != count*uint64(dimension)*4 {
		return nil, fmt.Errorf("%w: expected %d vectors of %d values", ErrCorrupt, count, dimension)
	}

	values := make([]float32, len(body)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:]))
	}
	return &Index{dimension: dimension, data: values}, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Factory creates flat indexes. It implements driven.VectorIndexFactory.
type Factory struct{}

// Ensure Factory implements the interface.
var _ driven.VectorIndexFactory = Factory{}

// New returns an empty index.
func (Factory) New(dimension int) (driven.VectorIndex, error) {
	return New(dimension)
}

// Decode restores a serialised index.
func (Factory) Decode(data []byte) (driven.VectorIndex, error) {
	return Decode(data)
}
