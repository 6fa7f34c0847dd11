package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderGemini is Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for OpenAI and Gemini).
	APIKey string

	// BatchSize bounds the number of texts sent per request.
	BatchSize int

	// RequestsPerSecond limits upstream calls. Zero disables limiting.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for OpenAI and Gemini).
	APIKey string

	// RequestsPerSecond limits upstream calls. Zero disables limiting.
	RequestsPerSecond float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ChunkingSettings controls how page text is cut into chunks.
type ChunkingSettings struct {
	// MaxChars is the character budget of a chunk.
	MaxChars int

	// Overlap is the number of trailing characters carried into the next chunk.
	Overlap int

	// MinParagraph is the shortest paragraph kept without a metadata keyword.
	MinParagraph int

	// MinChunk is the length a trimmed chunk must exceed to be indexed.
	MinChunk int
}

// RetrievalSettings controls retrieval and generation.
type RetrievalSettings struct {
	// TopK caps the number of neighbours fetched from the index.
	TopK int

	// Threshold is the minimum cosine similarity kept.
	Threshold float64

	// HistoryWindow is the number of recent turns given to the generator.
	HistoryWindow int

	// Mode is the default answer mode.
	Mode AnswerMode
}

// IndexBackend selects where document indexes are stored.
type IndexBackend string

// Available index backends.
const (
	IndexBackendFiles  IndexBackend = "files"
	IndexBackendSQLite IndexBackend = "sqlite"
)

// IsValid returns true if the backend is recognised.
func (b IndexBackend) IsValid() bool {
	return b == IndexBackendFiles || b == IndexBackendSQLite
}

// StorageSettings holds persistence configuration.
type StorageSettings struct {
	// DataDir is the root for the metadata database and index files.
	DataDir string

	// IndexBackend selects the document index store.
	IndexBackend IndexBackend
}

// ChatSettings holds chat memory configuration.
type ChatSettings struct {
	// RedisURL selects the redis conversation store. Empty uses memory.
	RedisURL string

	// TTL is the sliding retention of a conversation.
	TTL time.Duration
}

// ServerSettings holds HTTP server configuration.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string

	// JWTSecret signs and verifies bearer tokens.
	JWTSecret string

	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration

	// AllowedOrigins lists CORS origins. Empty allows any origin.
	AllowedOrigins []string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Chunking  ChunkingSettings
	Retrieval RetrievalSettings
	Storage   StorageSettings
	Chat      ChatSettings
	Server    ServerSettings

	// Owner is the identity used by single-user surfaces.
	Owner Identity
}

// DefaultAppSettings returns settings with sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:  AIProviderOpenAI,
			Model:     "text-embedding-3-large",
			BatchSize: 100,
		},
		LLM: LLMSettings{
			Provider: AIProviderOpenAI,
			Model:    "gpt-4o-mini",
		},
		Chunking: ChunkingSettings{
			MaxChars:     900,
			Overlap:      150,
			MinParagraph: 20,
			MinChunk:     10,
		},
		Retrieval: RetrievalSettings{
			TopK:          20,
			Threshold:     0.25,
			HistoryWindow: 6,
			Mode:          AnswerModeStrict,
		},
		Storage: StorageSettings{
			IndexBackend: IndexBackendFiles,
		},
		Chat: ChatSettings{
			TTL: 24 * time.Hour,
		},
		Server: ServerSettings{
			Addr:     ":8000",
			TokenTTL: 12 * time.Hour,
		},
		Owner: LocalIdentity,
	}
}

// EmbeddingDimensions returns known dimensions for common embedding models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"all-minilm":             384,
		"text-embedding-004":     768,
		"embedding-001":          768,
	}
}
