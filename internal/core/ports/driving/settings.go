package driving

import "github.com/custodia-labs/docqa/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, with defaults for unset keys
	// and environment overrides applied.
	Get() (*domain.AppSettings, error)

	// Set parses and stores a single setting by its config key (e.g. "retrieval.k").
	Set(key, value string) error

	// Keys returns every recognised config key with its current value.
	Keys() (map[string]string, error)

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider configures the LLM provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks that the current settings can run the pipeline.
	Validate() error

	// ValidateProviders pings the configured embedding and LLM providers.
	ValidateProviders() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
