package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// mockEmbeddingService returns fixed vectors per text.
type mockEmbeddingService struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	err      error
	batches  [][]string
	queries  []string
}

func newMockEmbedding() *mockEmbeddingService {
	return &mockEmbeddingService{
		vectors:  make(map[string][]float32),
		fallback: []float32{1, 0},
	}
}

func (m *mockEmbeddingService) vector(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	return m.fallback
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, text)
	if m.err != nil {
		return nil, m.err
	}
	return m.vector(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, append([]string(nil), texts...))
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int { return len(m.fallback) }
func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error { return nil }

// mockLLMService answers prompts with a responder function.
type mockLLMService struct {
	mu      sync.Mutex
	respond func(prompt string, opts driven.GenerateOptions) (string, error)
	deltas  []driven.StreamDelta
	prompts []string
	temps   []float64
}

func (m *mockLLMService) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.temps = append(m.temps, opts.Temperature)
	m.mu.Unlock()
	if m.respond == nil {
		return "", errors.New("no responder")
	}
	return m.respond(prompt, opts)
}

func (m *mockLLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	var b strings.Builder
	for _, msg := range messages {
		b.WriteString(msg.Content)
	}
	return m.Generate(ctx, b.String(), driven.GenerateOptions{Temperature: opts.Temperature})
}

func (m *mockLLMService) Stream(_ context.Context, prompt string, _ driven.GenerateOptions) (<-chan driven.StreamDelta, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	ch := make(chan driven.StreamDelta, len(m.deltas))
	for _, d := range m.deltas {
		ch <- d
	}
	close(ch)
	return ch, nil
}

func (m *mockLLMService) ModelName() string { return "mock-llm" }
func (m *mockLLMService) Ping(_ context.Context) error { return nil }
func (m *mockLLMService) Close() error { return nil }

func (m *mockLLMService) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// scripted returns a responder that answers generation prompts with answer
// and verification prompts with verdict.
func scripted(answer, verdict string) func(string, driven.GenerateOptions) (string, error) {
	return func(prompt string, _ driven.GenerateOptions) (string, error) {
		if strings.HasPrefix(prompt, "You are a verifier.") {
			return verdict, nil
		}
		return answer, nil
	}
}

// mockExtractor returns fixed pages. When gate is set, Extract signals
// started and then blocks until gate is closed or ctx is done.
type mockExtractor struct {
	mu      sync.Mutex
	pages   []domain.Page
	err     error
	calls   int
	started chan struct{}
	gate    chan struct{}
}

func (m *mockExtractor) SupportedMIMETypes() []string { return []string{"application/pdf"} }

func (m *mockExtractor) Extract(ctx context.Context, _ []byte) ([]domain.Page, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.gate != nil {
		close(m.started)
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.pages, m.err
}

func (m *mockExtractor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var testOwner = domain.Identity{Subject: "user-1", Email: "u1@example.com", Name: "User One"}

// seedIndex stores a ready document whose chunks carry the given vectors.
func seedIndex(
	ctx context.Context, docs *memory.DocumentStore, indexes *memory.IndexStore,
	owner, id string, chunks []domain.Chunk, vectors [][]float32,
) error {
	idx, err := flat.New(len(vectors[0]))
	if err != nil {
		return err
	}
	if err := idx.Add(ctx, vectors); err != nil {
		return err
	}
	blob, err := idx.MarshalBinary()
	if err != nil {
		return err
	}
	if err := indexes.Save(ctx, owner, id, &driven.IndexArtifacts{Vectors: blob, Chunks: chunks}); err != nil {
		return err
	}
	if err := docs.Create(ctx, &domain.DocumentRecord{ID: id, Owner: owner, Fingerprint: id, Name: id + ".pdf"}); err != nil {
		return err
	}
	return docs.MarkIndexed(ctx, owner, id, len(chunks))
}
