package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, defaults and environment
	// overrides applied.
	Get() (*domain.AppSettings, error)

	// SetAPIKey stores the API key for a provider.
	SetAPIKey(provider domain.AIProvider, apiKey string) error

	// SetAnswerMode updates the default answer mode.
	SetAnswerMode(mode domain.AnswerMode) error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig pings the configured embedding provider.
	ValidateEmbeddingConfig(ctx context.Context) error

	// ValidateLLMConfig pings the configured LLM provider.
	ValidateLLMConfig(ctx context.Context) error

	// Unset removes a stored key so its default applies again.
	Unset(key string) error

	// ConfigPath returns where settings are persisted.
	ConfigPath() string
}
