package postprocessors

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
	"github.com/custodia-labs/docqa/internal/postprocessors/minlength"
)

// RegisterDefaults registers the built-in processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("minlength", buildMinLength)
}

// DefaultStages returns the ingestion pipeline for the given settings:
// chunk pages, then drop noise fragments.
func DefaultStages(s domain.ChunkingSettings) []Stage {
	return []Stage{
		{Name: "chunker", Config: map[string]any{
			"max_chars":     s.MaxChars,
			"overlap":       s.Overlap,
			"min_paragraph": s.MinParagraph,
		}},
		{Name: "minlength", Config: map[string]any{
			"min_chars": s.MinChunk,
		}},
	}
}

// NewDefaultPipeline builds the default pipeline for the given settings.
func NewDefaultPipeline(s domain.ChunkingSettings) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	return r.Pipeline(DefaultStages(s))
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - max_chars (int): chunk budget in characters (default: 900)
//   - overlap (int): characters carried into the next chunk (default: 150)
//   - min_paragraph (int): shortest paragraph kept (default: 20)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size, ok := getIntFromConfig(cfg, "max_chars"); ok && size > 0 {
		opts = append(opts, chunker.WithMaxChars(size))
	}
	if overlap, ok := getIntFromConfig(cfg, "overlap"); ok && overlap >= 0 {
		opts = append(opts, chunker.WithOverlap(overlap))
	}
	if minPara, ok := getIntFromConfig(cfg, "min_paragraph"); ok && minPara >= 0 {
		opts = append(opts, chunker.WithMinParagraph(minPara))
	}

	return chunker.New(opts...), nil
}

// buildMinLength creates the noise filter.
// Supported config keys:
//   - min_chars (int): trimmed length a chunk must exceed (default: 10)
func buildMinLength(cfg map[string]any) (driven.PostProcessor, error) {
	if n, ok := getIntFromConfig(cfg, "min_chars"); ok && n >= 0 {
		return minlength.New(n), nil
	}
	return minlength.New(minlength.DefaultMinChars), nil
}

// getIntFromConfig extracts an int from a generic config map.
// TOML decodes integers as int64 and JSON as float64.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
