package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Retrieval defaults.
const (
	DefaultTopK      = 20
	DefaultThreshold = 0.25
)

// Retriever finds the passages of one document index that are similar to
// a question.
type Retriever struct {
	indexes   driven.IndexStore
	factory   driven.VectorIndexFactory
	embedder  *Embedder
	topK      int
	threshold float64
}

// NewRetriever creates a retriever. Non-positive topK uses DefaultTopK.
func NewRetriever(
	indexes driven.IndexStore,
	factory driven.VectorIndexFactory,
	embedder *Embedder,
	topK int,
	threshold float64,
) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		indexes:   indexes,
		factory:   factory,
		embedder:  embedder,
		topK:      topK,
		threshold: threshold,
	}
}

// Retrieve embeds the question and searches the owner's document index.
func (r *Retriever) Retrieve(ctx context.Context, owner, documentID, question string) (*domain.Retrieval, error) {
	logger.Section("Retrieval")

	idx, chunks, err := r.open(ctx, owner, documentID)
	if err != nil {
		return nil, err
	}

	query, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}

	return r.search(ctx, idx, chunks, query)
}

// open loads and validates the document index.
func (r *Retriever) open(ctx context.Context, owner, documentID string) (driven.VectorIndex, []domain.Chunk, error) {
	artifacts, err := r.indexes.Load(ctx, owner, documentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("index for %s: %w", documentID, domain.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("load index: %w", err)
	}

	idx, err := r.factory.Decode(artifacts.Vectors)
	if err != nil {
		return nil, nil, fmt.Errorf("decode index: %w", err)
	}
	if idx.Len() == 0 {
		return nil, nil, domain.ErrEmptyIndex
	}
	if idx.Len() != len(artifacts.Chunks) {
		return nil, nil, fmt.Errorf("index has %d vectors but %d chunks", idx.Len(), len(artifacts.Chunks))
	}
	return idx, artifacts.Chunks, nil
}

// search runs the nearest neighbour query and assembles the context.
func (r *Retriever) search(
	ctx context.Context, idx driven.VectorIndex, chunks []domain.Chunk, query []float32,
) (*domain.Retrieval, error) {
	k := min(r.topK, idx.Len())
	hits, err := idx.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	result := &domain.Retrieval{}
	seenText := make(map[string]struct{})
	seenSource := make(map[domain.Source]struct{})
	var texts []string

	for _, hit := range hits {
		if hit.Offset == driven.NoMatch || hit.Offset < 0 || hit.Offset >= len(chunks) {
			continue
		}
		sim := Similarity(hit.Distance)
		if sim < r.threshold {
			continue
		}

		chunk := chunks[hit.Offset]
		key := strings.ToLower(strings.TrimSpace(chunk.Text))
		if _, dup := seenText[key]; dup {
			continue
		}
		seenText[key] = struct{}{}

		result.Passages = append(result.Passages, domain.Passage{Chunk: chunk, Offset: hit.Offset, Similarity: sim})
		texts = append(texts, chunk.Text)

		src := domain.Source{Document: chunk.Source, Page: chunk.Page}
		if _, dup := seenSource[src]; !dup {
			seenSource[src] = struct{}{}
			result.Sources = append(result.Sources, src)
		}
	}

	result.Context = strings.Join(texts, "\n\n")
	logger.Debug("Retrieved %d of %d candidates, context %d chars", len(result.Passages), len(hits), len(result.Context))
	return result, nil
}

// Similarity converts a squared Euclidean distance between unit vectors to
// cosine similarity.
func Similarity(distance float32) float64 {
	return 1 - float64(distance)/2
}
