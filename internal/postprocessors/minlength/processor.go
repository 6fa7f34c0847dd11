// Package minlength drops chunks too short to be worth embedding.
package minlength

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// DefaultMinChars is the trimmed length a chunk must exceed.
const DefaultMinChars = 10

// Processor filters out short chunks. Survivors keep their order.
type Processor struct {
	minChars int
}

// New creates a filter that keeps chunks longer than minChars after trimming.
func New(minChars int) *Processor {
	return &Processor{minChars: minChars}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "minlength"
}

// Process returns the chunks whose trimmed text is long enough.
func (p *Processor) Process(_ context.Context, _ *driven.ChunkInput, chunks []domain.Chunk) ([]domain.Chunk, error) {
	kept := chunks[:0:0]
	for _, c := range chunks {
		if Keep(c.Text, p.minChars) {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

// Keep reports whether text survives a floor of minChars.
func Keep(text string, minChars int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) > minChars
}
