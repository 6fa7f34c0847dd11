package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

func newTestSettings(values map[string]any, env map[string]string) *SettingsService {
	s := NewSettingsService(memory.NewConfigStoreFrom(values), nil)
	s.lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	return s
}

func TestNewSettingsService(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := newTestSettings(nil, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.Embedding.Model, settings.Embedding.Model)
	assert.Equal(t, defaults.LLM.Model, settings.LLM.Model)
	assert.Equal(t, defaults.Chunking, settings.Chunking)
	assert.Equal(t, defaults.Retrieval, settings.Retrieval)
	assert.Equal(t, defaults.Chat.TTL, settings.Chat.TTL)
	assert.Equal(t, defaults.Server.Addr, settings.Server.Addr)
	assert.Equal(t, domain.LocalIdentity, settings.Owner)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	service := newTestSettings(map[string]any{
		"embedding.provider":     "ollama",
		"embedding.model":        "nomic-embed-text",
		"embedding.base_url":     "http://localhost:11434",
		"llm.provider":           "gemini",
		"llm.model":              "gemini-1.5-flash",
		"chunking.max_chars":     int64(600),
		"retrieval.threshold":    0.4,
		"retrieval.mode":         "hybrid",
		"storage.index_backend":  "sqlite",
		"chat.ttl":               "2h",
		"server.allowed_origins": []any{"http://localhost:3000"},
		"owner.subject":          "alice",
		"owner.email":            "alice@example.com",
	}, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
	assert.Equal(t, "http://localhost:11434", settings.Embedding.BaseURL)
	assert.Equal(t, domain.AIProviderGemini, settings.LLM.Provider)
	assert.Equal(t, 600, settings.Chunking.MaxChars)
	assert.InDelta(t, 0.4, settings.Retrieval.Threshold, 1e-9)
	assert.Equal(t, domain.AnswerModeHybrid, settings.Retrieval.Mode)
	assert.Equal(t, domain.IndexBackendSQLite, settings.Storage.IndexBackend)
	assert.Equal(t, 2*time.Hour, settings.Chat.TTL)
	assert.Equal(t, []string{"http://localhost:3000"}, settings.Server.AllowedOrigins)
	assert.Equal(t, domain.Identity{Subject: "alice", Email: "alice@example.com"}, settings.Owner)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	service := newTestSettings(map[string]any{
		"embedding.provider":    "invalid_provider",
		"retrieval.mode":        "creative",
		"storage.index_backend": "s3",
		"chat.ttl":              "soon",
		"chunking.max_chars":    int64(-5),
	}, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.Retrieval.Mode, settings.Retrieval.Mode)
	assert.Equal(t, defaults.Storage.IndexBackend, settings.Storage.IndexBackend)
	assert.Equal(t, defaults.Chat.TTL, settings.Chat.TTL)
	assert.Equal(t, defaults.Chunking.MaxChars, settings.Chunking.MaxChars)
}

func TestSettingsService_Get_ZeroThresholdIsKept(t *testing.T) {
	service := newTestSettings(map[string]any{"retrieval.threshold": 0.0}, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Zero(t, settings.Retrieval.Threshold)
}

func TestSettingsService_Get_EnvironmentOverrides(t *testing.T) {
	service := newTestSettings(map[string]any{
		"embedding.provider": "openai",
		"embedding.api_key":  "from-config",
		"llm.provider":       "gemini",
		"chat.redis_url":     "redis://config:6379/0",
	}, map[string]string{
		EnvOpenAIKey: "sk-env",
		EnvGeminiKey: "gm-env",
		EnvRedisURL:  "redis://env:6379/1",
		EnvJWTSecret: "secret",
		EnvDataDir:   "/var/lib/docqa",
	})

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "sk-env", settings.Embedding.APIKey)
	assert.Equal(t, "gm-env", settings.LLM.APIKey)
	assert.Equal(t, "redis://env:6379/1", settings.Chat.RedisURL)
	assert.Equal(t, "secret", settings.Server.JWTSecret)
	assert.Equal(t, "/var/lib/docqa", settings.Storage.DataDir)
}

func TestSettingsService_SetAPIKey(t *testing.T) {
	service := newTestSettings(map[string]any{"llm.provider": "openai"}, nil)

	require.NoError(t, service.SetAPIKey(domain.AIProviderOpenAI, "sk-stored"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-stored", settings.Embedding.APIKey)
	assert.Equal(t, "sk-stored", settings.LLM.APIKey)
	assert.True(t, settings.LLM.IsConfigured())
}

func TestSettingsService_SetAPIKey_Errors(t *testing.T) {
	service := newTestSettings(nil, nil)

	assert.Error(t, service.SetAPIKey("claude", "key"))
	assert.Error(t, service.SetAPIKey(domain.AIProviderOllama, "key"))
	assert.Error(t, service.SetAPIKey(domain.AIProviderGemini, ""))
}

func TestSettingsService_SetAnswerMode(t *testing.T) {
	service := newTestSettings(nil, nil)

	require.NoError(t, service.SetAnswerMode(domain.AnswerModeHybrid))
	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AnswerModeHybrid, settings.Retrieval.Mode)

	assert.Error(t, service.SetAnswerMode("creative"))
}

func TestSettingsService_Unset(t *testing.T) {
	service := newTestSettings(map[string]any{"retrieval.mode": "hybrid"}, nil)

	require.NoError(t, service.Unset("retrieval.mode"))
	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AnswerModeStrict, settings.Retrieval.Mode)

	assert.NoError(t, service.Unset("never.set"))
	assert.ErrorIs(t, service.Unset("  "), domain.ErrInvalidInput)
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := newTestSettings(nil, nil)

	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

// Mock AIConfigValidator for testing
type mockAIConfigValidator struct {
	embedErr error
	llmErr   error
	embedCfg *domain.EmbeddingSettings
	llmCfg   *domain.LLMSettings
}

func (m *mockAIConfigValidator) ValidateEmbedding(_ context.Context, cfg *domain.EmbeddingSettings) error {
	m.embedCfg = cfg
	return m.embedErr
}

func (m *mockAIConfigValidator) ValidateLLM(_ context.Context, cfg *domain.LLMSettings) error {
	m.llmCfg = cfg
	return m.llmErr
}

func TestSettingsService_ValidateConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("nil validator", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)
		assert.NoError(t, service.ValidateEmbeddingConfig(ctx))
		assert.NoError(t, service.ValidateLLMConfig(ctx))
	})

	t.Run("passes current settings", func(t *testing.T) {
		validator := &mockAIConfigValidator{}
		service := NewSettingsService(memory.NewConfigStoreFrom(map[string]any{"llm.model": "gpt-4o"}), validator)

		require.NoError(t, service.ValidateEmbeddingConfig(ctx))
		require.NoError(t, service.ValidateLLMConfig(ctx))
		assert.Equal(t, "text-embedding-3-large", validator.embedCfg.Model)
		assert.Equal(t, "gpt-4o", validator.llmCfg.Model)
	})

	t.Run("propagates errors", func(t *testing.T) {
		validator := &mockAIConfigValidator{embedErr: assert.AnError, llmErr: assert.AnError}
		service := NewSettingsService(memory.NewConfigStore(), validator)

		assert.ErrorIs(t, service.ValidateEmbeddingConfig(ctx), assert.AnError)
		assert.ErrorIs(t, service.ValidateLLMConfig(ctx), assert.AnError)
	})
}
