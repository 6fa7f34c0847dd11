package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// ChunkInput is the document handed to the post-processor pipeline.
type ChunkInput struct {
	// Label is the document display name stamped on every chunk.
	Label string

	// Pages is the extracted page text in order.
	Pages []domain.Page
}

// PostProcessor turns extracted pages into chunks.
// PostProcessors are chained in a pipeline (e.g., chunking, noise filtering).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document and returns chunks.
	// A processor that creates chunks receives nil and returns new chunks.
	// A processor that filters chunks receives and returns chunks.
	Process(ctx context.Context, doc *ChunkInput, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	// Returns the final chunks after all processing.
	Process(ctx context.Context, doc *ChunkInput) ([]domain.Chunk, error)
}
