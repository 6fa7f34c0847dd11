// Package gemini provides an LLM service adapter using the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai/ratelimit"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-1.5-flash"

// Config holds configuration for the Gemini LLM service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the generative model to use (default: gemini-1.5-flash).
	Model string

	// RequestsPerSecond throttles requests. Zero disables throttling.
	RequestsPerSecond float64

	// ClientOptions are passed to the underlying client, after the API key.
	ClientOptions []option.ClientOption
}

// LLMService provides LLM operations using Gemini.
type LLMService struct {
	client  *genai.Client
	limiter *ratelimit.Limiter
	model   string
}

// NewLLMService creates a new Gemini LLM service.
func NewLLMService(ctx context.Context, cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, cfg.ClientOptions...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &LLMService{
		client:  client,
		limiter: ratelimit.New(cfg.RequestsPerSecond, 0),
		model:   cfg.Model,
	}, nil
}

// newModel returns a model handle configured for one call.
// Handles carry mutable settings so they are never shared between calls.
func (s *LLMService) newModel(maxTokens int, temperature float64, stop []string) *genai.GenerativeModel {
	m := s.client.GenerativeModel(s.model)
	m.SetTemperature(float32(temperature))
	if maxTokens > 0 {
		m.SetMaxOutputTokens(int32(maxTokens))
	}
	if len(stop) > 0 {
		m.StopSequences = stop
	}
	return m
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	m := s.newModel(opts.MaxTokens, opts.Temperature, opts.StopWords)
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini: generate: %w", err)
	}
	return responseText(resp), nil
}

// Chat conducts a multi-turn conversation.
// System messages become the system instruction; the last message is sent
// and everything before it is replayed as history.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	system, history, last, err := splitMessages(messages)
	if err != nil {
		return "", err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	m := s.newModel(opts.MaxTokens, opts.Temperature, nil)
	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	cs := m.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", fmt.Errorf("gemini: chat: %w", err)
	}
	return responseText(resp), nil
}

// Stream produces a completion incrementally.
func (s *LLMService) Stream(ctx context.Context, prompt string, opts driven.GenerateOptions) (<-chan driven.StreamDelta, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	m := s.newModel(opts.MaxTokens, opts.Temperature, opts.StopWords)
	iter := m.GenerateContentStream(ctx, genai.Text(prompt))

	out := make(chan driven.StreamDelta)
	go func() {
		defer close(out)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				send(ctx, out, driven.StreamDelta{Err: fmt.Errorf("gemini: stream: %w", err)})
				return
			}
			text := responseText(resp)
			if text == "" {
				continue
			}
			if !send(ctx, out, driven.StreamDelta{Content: text}) {
				return
			}
		}
	}()
	return out, nil
}

func send(ctx context.Context, out chan<- driven.StreamDelta, d driven.StreamDelta) bool {
	select {
	case out <- d:
		return true
	case <-ctx.Done():
		return false
	}
}

// responseText joins the text parts of every candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	return b.String()
}

// splitMessages maps chat messages onto Gemini's conversation shape.
func splitMessages(messages []driven.ChatMessage) (string, []*genai.Content, string, error) {
	var system []string
	var turns []driven.ChatMessage
	for _, msg := range messages {
		if msg.Role == "system" {
			system = append(system, msg.Content)
			continue
		}
		turns = append(turns, msg)
	}
	if len(turns) == 0 {
		return "", nil, "", errors.New("gemini: chat needs at least one non-system message")
	}

	history := make([]*genai.Content, 0, len(turns)-1)
	for _, msg := range turns[:len(turns)-1] {
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return strings.Join(system, "\n\n"), history, turns[len(turns)-1].Content, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the API key with a one-token generation.
func (s *LLMService) Ping(ctx context.Context) error {
	if _, err := s.Generate(ctx, "ping", driven.GenerateOptions{MaxTokens: 1}); err != nil {
		return fmt.Errorf("gemini: ping failed: %w", err)
	}
	return nil
}

// Close releases the client.
func (s *LLMService) Close() error {
	return s.client.Close()
}
