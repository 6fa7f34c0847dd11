package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure SummaryService implements the interfaces.
var (
	_ driving.SummaryService  = (*SummaryService)(nil)
	_ driven.PromptStoreAware = (*SummaryService)(nil)
)

// SummaryQuestion is the instruction given to the overview generation.
const SummaryQuestion = "Give a concise, high-level summary of this document."

// Sampling and question limits.
const (
	SummarySampleTarget = 25
	SummarySampleCap    = 30
	MaxQuestions        = 10
	MaxQuestionRunes    = 120
	minQuestionChars    = 10
)

// SummaryService derives cached overviews and suggested questions from an
// already built document index.
type SummaryService struct {
	docs      driven.DocumentStore
	summaries driven.SummaryStore
	indexes   driven.IndexStore
	llm       driven.LLMService
	prompts   prompts
	flights   singleflight.Group
	now       func() time.Time
}

// NewSummaryService creates a new summary service.
func NewSummaryService(
	docs driven.DocumentStore,
	summaries driven.SummaryStore,
	indexes driven.IndexStore,
	llm driven.LLMService,
) *SummaryService {
	return &SummaryService{
		docs:      docs,
		summaries: summaries,
		indexes:   indexes,
		llm:       llm,
		now:       time.Now,
	}
}

// SetPromptStore sets the prompt store for customisable prompts.
func (s *SummaryService) SetPromptStore(store driven.PromptStore) {
	s.prompts.store = store
}

// Get returns the current summary without generating one.
func (s *SummaryService) Get(ctx context.Context, owner domain.Identity, documentID string) (*domain.Summary, error) {
	if !owner.IsValid() {
		return nil, domain.ErrAccessDenied
	}
	return s.summaries.Get(ctx, owner.Subject, documentID)
}

// Summarize returns the current summary, generating it when none exists
// or when force is set.
func (s *SummaryService) Summarize(ctx context.Context, owner domain.Identity, documentID string, force bool) (*domain.Summary, error) {
	if _, err := readyDocument(ctx, s.docs, owner, documentID); err != nil {
		return nil, err
	}

	current, err := s.summaries.Get(ctx, owner.Subject, documentID)
	switch {
	case err == nil && !force:
		return current, nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("load summary: %w", err)
	}
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	v, err, _ := s.flights.Do(owner.Subject+"/"+documentID, func() (any, error) {
		return s.generate(ctx, owner.Subject, documentID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Summary), nil
}

// generate runs the overview and question calls and stores a new version.
func (s *SummaryService) generate(ctx context.Context, owner, documentID string) (*domain.Summary, error) {
	logger.Section("Summary")

	artifacts, err := s.indexes.Load(ctx, owner, documentID)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	if len(artifacts.Chunks) == 0 {
		return nil, domain.ErrEmptyIndex
	}

	samples := SampleChunks(artifacts.Chunks, SummarySampleTarget, SummarySampleCap)
	texts := make([]string, len(samples))
	for i, c := range samples {
		texts[i] = c.Text
	}
	logger.Debug("Sampled %d of %d chunks", len(samples), len(artifacts.Chunks))

	overview, err := s.hybrid(ctx, strings.Join(texts, "\n\n"), SummaryQuestion)
	if err != nil {
		return nil, err
	}
	overview = NormalizeMarkdown(overview)

	raw, err := s.hybrid(ctx, overview, s.prompts.render(driven.PromptQuestions, overview))
	if err != nil {
		return nil, err
	}
	questions := CleanQuestions(ParseQuestions(raw))

	version := 1
	prev, err := s.summaries.Get(ctx, owner, documentID)
	switch {
	case err == nil:
		version = prev.Version + 1
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("load summary: %w", err)
	}

	summary := &domain.Summary{
		DocumentID:         documentID,
		Owner:              owner,
		Overview:           overview,
		SuggestedQuestions: questions,
		Version:            version,
		UpdatedAt:          s.now(),
	}
	if err := s.summaries.Upsert(ctx, summary); err != nil {
		return nil, fmt.Errorf("store summary: %w", err)
	}
	logger.Info("Summary v%d for %s: %d questions", version, documentID, len(questions))
	return summary, nil
}

// hybrid runs one unverified hybrid-mode generation.
func (s *SummaryService) hybrid(ctx context.Context, docContext, question string) (string, error) {
	prompt := buildAnswerPrompt(&s.prompts, domain.AnswerModeHybrid, nil, docContext, question)
	out, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{Temperature: GenerationTemperature})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	return strings.TrimSpace(out), nil
}

// SampleChunks picks chunks spread across the whole document with stride
// max(1, len/target), keeping at most limit of them.
func SampleChunks(chunks []domain.Chunk, target, limit int) []domain.Chunk {
	if target <= 0 {
		target = 1
	}
	stride := max(1, len(chunks)/target)

	var out []domain.Chunk
	for i := 0; i < len(chunks) && len(out) < limit; i += stride {
		out = append(out, chunks[i])
	}
	return out
}

// ParseQuestions extracts up to MaxQuestions candidate lines from model
// output, stripping list markers.
func ParseQuestions(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) <= minQuestionChars {
			continue
		}
		line = strings.TrimSpace(strings.Trim(line, "-•1234567890. "))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == MaxQuestions {
			break
		}
	}
	return out
}

// CleanQuestions drops headings, bold labels, non-questions and overlong
// lines.
func CleanQuestions(questions []string) []string {
	out := make([]string, 0, len(questions))
	for _, q := range questions {
		q = strings.TrimSpace(q)
		switch {
		case q == "":
		case strings.HasPrefix(q, "#"):
		case strings.HasPrefix(q, "**") && strings.HasSuffix(q, "**"):
		case !strings.HasSuffix(q, "?"):
		case utf8.RuneCountInString(q) > MaxQuestionRunes:
		default:
			out = append(out, q)
		}
	}
	return out
}
