package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var outputFormat = formatText

func validateFormat() error {
	switch outputFormat {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("%w: unknown output format %q", domain.ErrInvalidInput, outputFormat)
	}
}

// render writes v as JSON or YAML, or calls text for the default format.
func render(w io.Writer, v any, text func(io.Writer)) error {
	switch outputFormat {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		text(w)
		return nil
	}
}

// documentView is the rendered form of a document record.
type documentView struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Indexed   bool      `json:"indexed" yaml:"indexed"`
	Chunks    int       `json:"chunks" yaml:"chunks"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

func toDocumentView(rec domain.DocumentRecord) documentView {
	return documentView{
		ID:        rec.ID,
		Name:      rec.Name,
		Indexed:   rec.Indexed,
		Chunks:    rec.ChunkCount,
		CreatedAt: rec.CreatedAt,
	}
}

type ingestView struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Chunks         int    `json:"chunks" yaml:"chunks"`
	AlreadyIndexed bool   `json:"already_indexed" yaml:"already_indexed"`
}

type answerView struct {
	Answer         string   `json:"answer" yaml:"answer"`
	Type           string   `json:"answer_type" yaml:"answer_type"`
	Confidence     float64  `json:"confidence" yaml:"confidence"`
	Sources        []string `json:"sources" yaml:"sources"`
	ConversationID string   `json:"conversation_id,omitempty" yaml:"conversation_id,omitempty"`
}

type summaryView struct {
	DocumentID         string    `json:"document_id" yaml:"document_id"`
	Overview           string    `json:"overview" yaml:"overview"`
	SuggestedQuestions []string  `json:"suggested_questions" yaml:"suggested_questions"`
	Version            int       `json:"version" yaml:"version"`
	UpdatedAt          time.Time `json:"updated_at" yaml:"updated_at"`
}

func toSummaryView(s *domain.Summary) summaryView {
	questions := s.SuggestedQuestions
	if questions == nil {
		questions = []string{}
	}
	return summaryView{
		DocumentID:         s.DocumentID,
		Overview:           s.Overview,
		SuggestedQuestions: questions,
		Version:            s.Version,
		UpdatedAt:          s.UpdatedAt,
	}
}

type turnView struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
