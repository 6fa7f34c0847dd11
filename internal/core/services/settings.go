package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyEmbedBatchSize    = "embedding.batch_size"
	keyEmbedRate         = "embedding.requests_per_second"
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyLLMRate           = "llm.requests_per_second"
	keyChunkMaxChars     = "chunking.max_chars"
	keyChunkOverlap      = "chunking.overlap"
	keyChunkMinParagraph = "chunking.min_paragraph"
	keyChunkMinChars     = "chunking.min_chars"
	keyRetrievalTopK     = "retrieval.top_k"
	keyRetrievalThresh   = "retrieval.threshold"
	keyRetrievalHistory  = "retrieval.history_window"
	keyRetrievalMode     = "retrieval.mode"
	keyStorageDataDir    = "storage.data_dir"
	keyStorageBackend    = "storage.index_backend"
	keyChatRedisURL      = "chat.redis_url"
	keyChatTTL           = "chat.ttl"
	keyServerAddr        = "server.addr"
	keyServerJWTSecret   = "server.jwt_secret"
	keyServerTokenTTL    = "server.token_ttl"
	keyServerOrigins     = "server.allowed_origins"
	keyOwnerSubject      = "owner.subject"
	keyOwnerEmail        = "owner.email"
	keyOwnerName         = "owner.name"
	keyAPIKeyPrefix      = "api_keys."
)

// Environment variables that override stored configuration.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvOpenAIKey = "OPENAI_API_KEY"
	EnvGeminiKey = "GEMINI_API_KEY"
	EnvRedisURL  = "REDIS_URL"
	EnvJWTSecret = "DOCQA_JWT_SECRET"
	EnvDataDir   = "DOCQA_DATA_DIR"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   os.LookupEnv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			BatchSize:         s.getInt(keyEmbedBatchSize, defaults.Embedding.BatchSize),
			RequestsPerSecond: s.configStore.GetFloat(keyEmbedRate),
		},
		LLM: domain.LLMSettings{
			Provider:          s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:             s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:           s.configStore.GetString(keyLLMBaseURL),
			APIKey:            s.configStore.GetString(keyLLMAPIKey),
			RequestsPerSecond: s.configStore.GetFloat(keyLLMRate),
		},
		Chunking: domain.ChunkingSettings{
			MaxChars:     s.getInt(keyChunkMaxChars, defaults.Chunking.MaxChars),
			Overlap:      s.getInt(keyChunkOverlap, defaults.Chunking.Overlap),
			MinParagraph: s.getInt(keyChunkMinParagraph, defaults.Chunking.MinParagraph),
			MinChunk:     s.getInt(keyChunkMinChars, defaults.Chunking.MinChunk),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:          s.getInt(keyRetrievalTopK, defaults.Retrieval.TopK),
			Threshold:     s.getFloat(keyRetrievalThresh, defaults.Retrieval.Threshold),
			HistoryWindow: s.getInt(keyRetrievalHistory, defaults.Retrieval.HistoryWindow),
			Mode:          s.getAnswerMode(defaults.Retrieval.Mode),
		},
		Storage: domain.StorageSettings{
			DataDir:      s.configStore.GetString(keyStorageDataDir),
			IndexBackend: s.getIndexBackend(defaults.Storage.IndexBackend),
		},
		Chat: domain.ChatSettings{
			RedisURL: s.configStore.GetString(keyChatRedisURL),
			TTL:      s.getDuration(keyChatTTL, defaults.Chat.TTL),
		},
		Server: domain.ServerSettings{
			Addr:           s.getString(keyServerAddr, defaults.Server.Addr),
			JWTSecret:      s.configStore.GetString(keyServerJWTSecret),
			TokenTTL:       s.getDuration(keyServerTokenTTL, defaults.Server.TokenTTL),
			AllowedOrigins: s.configStore.GetStringSlice(keyServerOrigins),
		},
		Owner: defaults.Owner,
	}

	if subject := s.configStore.GetString(keyOwnerSubject); subject != "" {
		settings.Owner = domain.Identity{
			Subject: subject,
			Email:   s.configStore.GetString(keyOwnerEmail),
			Name:    s.configStore.GetString(keyOwnerName),
		}
	}

	s.applyAPIKeys(settings)
	s.applyEnv(settings)

	return settings, nil
}

// applyAPIKeys fills missing provider keys from the shared key table.
func (s *SettingsService) applyAPIKeys(settings *domain.AppSettings) {
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.configStore.GetString(keyAPIKeyPrefix + settings.Embedding.Provider.String())
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.configStore.GetString(keyAPIKeyPrefix + settings.LLM.Provider.String())
	}
}

// applyEnv lets the environment override stored values.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	providerEnv := map[domain.AIProvider]string{
		domain.AIProviderOpenAI: EnvOpenAIKey,
		domain.AIProviderGemini: EnvGeminiKey,
	}
	if name, ok := providerEnv[settings.Embedding.Provider]; ok {
		if v := s.env(name); v != "" {
			settings.Embedding.APIKey = v
		}
	}
	if name, ok := providerEnv[settings.LLM.Provider]; ok {
		if v := s.env(name); v != "" {
			settings.LLM.APIKey = v
		}
	}
	if v := s.env(EnvRedisURL); v != "" {
		settings.Chat.RedisURL = v
	}
	if v := s.env(EnvJWTSecret); v != "" {
		settings.Server.JWTSecret = v
	}
	if v := s.env(EnvDataDir); v != "" {
		settings.Storage.DataDir = v
	}
}

func (s *SettingsService) env(name string) string {
	if s.lookupEnv == nil {
		return ""
	}
	v, _ := s.lookupEnv(name)
	return v
}

// SetAPIKey stores the API key for a provider.
func (s *SettingsService) SetAPIKey(provider domain.AIProvider, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid provider: %s", provider)
	}
	if !provider.RequiresAPIKey() {
		return fmt.Errorf("provider %s does not use an API key", provider)
	}
	if apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}
	if err := s.configStore.Set(keyAPIKeyPrefix+provider.String(), apiKey); err != nil {
		return fmt.Errorf("save %s api key: %w", provider, err)
	}
	return nil
}

// SetAnswerMode updates the default answer mode.
func (s *SettingsService) SetAnswerMode(mode domain.AnswerMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("invalid answer mode: %s", mode)
	}
	if err := s.configStore.Set(keyRetrievalMode, mode.String()); err != nil {
		return fmt.Errorf("save answer mode: %w", err)
	}
	return nil
}

// Unset removes a stored key. Unknown keys are not an error.
func (s *SettingsService) Unset(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: key is required", domain.ErrInvalidInput)
	}
	if err := s.configStore.Delete(key); err != nil {
		return fmt.Errorf("unset %s: %w", key, err)
	}
	return nil
}

// ConfigPath returns the configuration file path.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(ctx, &settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(ctx, &settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getAnswerMode(defaultVal domain.AnswerMode) domain.AnswerMode {
	mode := domain.AnswerMode(s.configStore.GetString(keyRetrievalMode))
	if !mode.IsValid() {
		return defaultVal
	}
	return mode
}

func (s *SettingsService) getIndexBackend(defaultVal domain.IndexBackend) domain.IndexBackend {
	backend := domain.IndexBackend(s.configStore.GetString(keyStorageBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
