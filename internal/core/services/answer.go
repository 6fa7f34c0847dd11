package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure AnswerService implements the interfaces.
var (
	_ driving.AnswerService   = (*AnswerService)(nil)
	_ driven.PromptStoreAware = (*AnswerService)(nil)
)

// Generation parameters.
const (
	GenerationTemperature   = 0.2
	VerificationTemperature = 0.0
	DefaultHistoryWindow    = 6
	streamBuffer            = 16
)

// AnswerService answers questions about one indexed document: retrieve,
// generate, verify, record.
type AnswerService struct {
	docs          driven.DocumentStore
	retriever     *Retriever
	llm           driven.LLMService
	memory        *ChatMemory
	prompts       prompts
	historyWindow int
	defaultMode   domain.AnswerMode
}

// AnswerOption configures the answer service.
type AnswerOption func(*AnswerService)

// WithHistoryWindow sets how many recent turns reach the generator.
func WithHistoryWindow(n int) AnswerOption {
	return func(s *AnswerService) {
		if n >= 0 {
			s.historyWindow = n
		}
	}
}

// WithDefaultMode sets the mode used when a question carries none.
func WithDefaultMode(mode domain.AnswerMode) AnswerOption {
	return func(s *AnswerService) {
		if mode.IsValid() {
			s.defaultMode = mode
		}
	}
}

// NewAnswerService creates a new answer service.
func NewAnswerService(
	docs driven.DocumentStore,
	retriever *Retriever,
	llm driven.LLMService,
	memory *ChatMemory,
	opts ...AnswerOption,
) *AnswerService {
	s := &AnswerService{
		docs:          docs,
		retriever:     retriever,
		llm:           llm,
		memory:        memory,
		historyWindow: DefaultHistoryWindow,
		defaultMode:   domain.AnswerModeStrict,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetPromptStore sets the prompt store for customisable prompts.
func (s *AnswerService) SetPromptStore(store driven.PromptStore) {
	s.prompts.store = store
}

// prepared is everything needed to generate an answer.
type prepared struct {
	question  domain.Question
	retrieval *domain.Retrieval
	prompt    string
}

// prepare validates the question, gates access and builds the prompt.
func (s *AnswerService) prepare(ctx context.Context, q domain.Question) (*prepared, error) {
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return nil, fmt.Errorf("empty question: %w", domain.ErrInvalidInput)
	}
	if q.Mode == "" {
		q.Mode = s.defaultMode
	}
	if !q.Mode.IsValid() {
		return nil, fmt.Errorf("answer mode %q: %w", q.Mode, domain.ErrInvalidInput)
	}

	if _, err := readyDocument(ctx, s.docs, q.Owner, q.DocumentID); err != nil {
		return nil, err
	}

	retrieval, err := s.retriever.Retrieve(ctx, q.Owner.Subject, q.DocumentID, q.Text)
	if err != nil {
		return nil, err
	}

	history, err := s.memory.Window(ctx, q.Owner, q.ConversationID, s.historyWindow)
	if err != nil {
		// History is best-effort context.
		logger.Warn("Conversation %s unavailable: %v", q.ConversationID, err)
		history = nil
	}

	return &prepared{
		question:  q,
		retrieval: retrieval,
		prompt:    s.answerPrompt(q.Mode, history, retrieval.Context, q.Text),
	}, nil
}

// answerPrompt assembles the generation prompt.
func (s *AnswerService) answerPrompt(mode domain.AnswerMode, history []domain.ChatTurn, docContext, question string) string {
	return buildAnswerPrompt(&s.prompts, mode, history, docContext, question)
}

func buildAnswerPrompt(p *prompts, mode domain.AnswerMode, history []domain.ChatTurn, docContext, question string) string {
	rules := p.load(driven.PromptStrictRules)
	if mode == domain.AnswerModeHybrid {
		rules = p.load(driven.PromptHybridRules)
	}

	var hist strings.Builder
	for _, turn := range history {
		role := "Assistant"
		if turn.Role == domain.RoleUser {
			role = "User"
		}
		fmt.Fprintf(&hist, "%s: %s\n", role, turn.Content)
	}
	historyBlock := hist.String()
	if historyBlock == "" {
		historyBlock = noHistory
	}
	if docContext == "" {
		docContext = noContext
	}

	return p.render(driven.PromptAnswer, rules, historyBlock, docContext, question)
}

// Ask answers a question with verification.
func (s *AnswerService) Ask(ctx context.Context, q domain.Question) (*domain.Answer, error) {
	p, err := s.prepare(ctx, q)
	if err != nil {
		return nil, err
	}

	logger.Section("Generation")
	raw, err := s.llm.Generate(ctx, p.prompt, driven.GenerateOptions{Temperature: GenerationTemperature})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	raw = strings.TrimSpace(raw)

	verification, err := s.verify(ctx, raw, p.retrieval.Context)
	if err != nil {
		return nil, err
	}
	answerType, confidence := verification.Classify()
	logger.Debug("Verification: supported=%t strength=%s -> %s", verification.Supported, verification.Strength, answerType)

	s.remember(ctx, p.question, raw)

	sources := []string{}
	if verification.ExposesSources() {
		for _, src := range p.retrieval.Sources {
			sources = append(sources, src.String())
		}
	}

	return &domain.Answer{
		Text:           NormalizeMarkdown(raw),
		Type:           answerType,
		Confidence:     confidence,
		Sources:        sources,
		ConversationID: p.question.ConversationID,
	}, nil
}

// verify asks the model whether the answer is supported by the context.
// Transport failures are errors; unreadable judgments fail closed.
func (s *AnswerService) verify(ctx context.Context, answer, docContext string) (domain.Verification, error) {
	logger.Section("Verification")
	if docContext == "" {
		docContext = emptyContext
	}
	prompt := s.prompts.render(driven.PromptVerify, docContext, answer)

	raw, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{Temperature: VerificationTemperature})
	if err != nil {
		return domain.Unsupported, fmt.Errorf("%w: verify: %w", domain.ErrGeneration, err)
	}
	return ParseVerification(raw), nil
}

// ParseVerification decodes the verifier's JSON judgment. Anything other
// than a well-formed supported/strength pair yields domain.Unsupported.
func ParseVerification(raw string) domain.Verification {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
		text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
	}

	var judgment struct {
		Supported *bool   `json:"supported"`
		Strength  *string `json:"strength"`
	}
	if err := json.Unmarshal([]byte(text), &judgment); err != nil {
		logger.Debug("Unreadable verification %q: %v", raw, err)
		return domain.Unsupported
	}
	if judgment.Supported == nil || judgment.Strength == nil || !*judgment.Supported {
		return domain.Unsupported
	}

	switch strength := domain.Strength(strings.ToLower(strings.TrimSpace(*judgment.Strength))); strength {
	case domain.StrengthStrong, domain.StrengthWeak:
		return domain.Verification{Supported: true, Strength: strength}
	default:
		return domain.Unsupported
	}
}

// AskStream generates an unverified answer incrementally.
func (s *AnswerService) AskStream(ctx context.Context, q domain.Question) (<-chan domain.StreamEvent, error) {
	p, err := s.prepare(ctx, q)
	if err != nil {
		return nil, err
	}

	deltas, err := s.llm.Stream(ctx, p.prompt, driven.GenerateOptions{Temperature: GenerationTemperature})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	events := make(chan domain.StreamEvent, streamBuffer)
	go s.relay(ctx, p.question, deltas, events)
	return events, nil
}

// relay forwards deltas as events and records the exchange once the
// stream has completed.
func (s *AnswerService) relay(ctx context.Context, q domain.Question, deltas <-chan driven.StreamDelta, events chan<- domain.StreamEvent) {
	defer close(events)

	send := func(ev domain.StreamEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	var full strings.Builder
	for {
		select {
		case <-ctx.Done():
			return
		case delta, ok := <-deltas:
			if !ok {
				s.remember(ctx, q, strings.TrimSpace(full.String()))
				send(domain.StreamEvent{Done: true})
				return
			}
			if delta.Err != nil {
				send(domain.StreamEvent{Err: fmt.Errorf("%w: %w", domain.ErrGeneration, delta.Err)})
				return
			}
			if delta.Content == "" {
				continue
			}
			full.WriteString(delta.Content)
			if !send(domain.StreamEvent{Token: delta.Content}) {
				return
			}
		}
	}
}

// remember appends the exchange to chat memory. Failures are logged.
func (s *AnswerService) remember(ctx context.Context, q domain.Question, answer string) {
	err := s.memory.Append(ctx, q.Owner, q.ConversationID,
		domain.ChatTurn{Role: domain.RoleUser, Content: q.Text},
		domain.ChatTurn{Role: domain.RoleAssistant, Content: answer},
	)
	if err != nil {
		logger.Warn("Could not record conversation %s: %v", q.ConversationID, err)
	}
}
