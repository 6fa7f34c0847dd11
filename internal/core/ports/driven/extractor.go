package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// PageExtractor supplies ordered page text from a source document.
// The chunker consumes its output and nothing lower-level.
type PageExtractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// Extract returns pages in order. Pages without text may be omitted.
	Extract(ctx context.Context, data []byte) ([]domain.Page, error)
}
