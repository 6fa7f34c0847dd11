package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Embedder defaults.
const (
	DefaultBatchSize      = 100
	DefaultMinTextChars   = 10
	embedBatchConcurrency = 4
)

// Embedder turns texts into L2-normalised vectors using one model for both
// documents and queries.
type Embedder struct {
	service   driven.EmbeddingService
	batchSize int
	minChars  int
}

// NewEmbedder wraps an embedding service. Texts whose trimmed length does
// not exceed minChars are discarded before embedding.
func NewEmbedder(service driven.EmbeddingService, batchSize, minChars int) *Embedder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if minChars < 0 {
		minChars = DefaultMinTextChars
	}
	return &Embedder{
		service:   service,
		batchSize: batchSize,
		minChars:  minChars,
	}
}

// Usable reports whether text survives the embedder's length floor.
func (e *Embedder) Usable(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) > e.minChars
}

// Embed returns one vector per surviving text, in input order.
// Batches are sent concurrently and reassembled by position.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.service == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	clean := make([]string, 0, len(texts))
	for _, t := range texts {
		if e.Usable(t) {
			clean = append(clean, strings.TrimSpace(t))
		}
	}
	if len(clean) == 0 {
		return nil, domain.ErrEmptyInput
	}

	out := make([][]float32, len(clean))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedBatchConcurrency)

	for start := 0; start < len(clean); start += e.batchSize {
		end := min(start+e.batchSize, len(clean))
		g.Go(func() error {
			logger.Debug("Embedding batch %d-%d of %d", start, end, len(clean))
			vectors, err := e.service.EmbedBatch(gctx, clean[start:end])
			if err != nil {
				return fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
			}
			if len(vectors) != end-start {
				return fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrEmbedding, len(vectors), end-start)
			}
			for i, v := range vectors {
				out[start+i] = Normalize(v)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// EmbedQuery embeds a single query with the same model as Embed.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.service == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty query: %w", domain.ErrInvalidInput)
	}

	v, err := e.service.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: empty vector", domain.ErrEmbedding)
	}
	return Normalize(v), nil
}

// Normalize returns v scaled to unit length. A zero vector is returned
// unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}
