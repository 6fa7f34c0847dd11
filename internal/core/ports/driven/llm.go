// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMService provides language model operations for answering and verification.
//
// Implementations may include:
//   - OpenAI (gpt-4o-mini and compatible APIs)
//   - Ollama (local models)
//   - Gemini (gemini-1.5-flash)
type LLMService interface {
	// Generate produces text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Chat conducts a multi-turn conversation.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// Stream produces a completion incrementally.
	// The returned channel delivers deltas in order and is closed when the
	// completion ends. A failure is delivered as the last delta.
	Stream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan StreamDelta, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	// Zero is sent to the provider as an explicit value.
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}

// StreamDelta is one piece of a streamed completion.
type StreamDelta struct {
	// Content is the text appended by this delta.
	Content string

	// Err is set on the final delta when the stream failed.
	Err error
}
