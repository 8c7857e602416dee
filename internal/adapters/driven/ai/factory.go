// Package ai builds the embedding, LLM and reranker adapters from settings.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/openai"
	copilotllm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/copilot"
	ollamallm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/reranker/crossencoder"
	"github.com/custodia-labs/docqa/internal/adapters/driven/reranker/lexical"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Factory builds provider adapters. Its methods match the lazy constructors
// the retrieval service expects, so credentials are only checked on first use.
type Factory struct {
	settings domain.AppSettings
}

// NewFactory creates a factory for settings.
func NewFactory(settings domain.AppSettings) *Factory {
	return &Factory{settings: settings}
}

// Embedding builds the configured embedding service.
func (f *Factory) Embedding() (driven.EmbeddingService, error) {
	return CreateEmbeddingService(&f.settings.Embedding, f.settings.Concurrency.RequestsPerSecond)
}

// LLM builds the configured LLM service.
func (f *Factory) LLM() (driven.LLMService, error) {
	return CreateLLMService(&f.settings.LLM, f.settings.Concurrency.RequestsPerSecond)
}

// Reranker builds the configured reranker.
func (f *Factory) Reranker() (driven.Reranker, error) {
	return CreateReranker(&f.settings.Reranker, f.settings.Concurrency.RequestsPerSecond)
}

// CreateEmbeddingService creates the embedding service selected by settings.
func CreateEmbeddingService(settings *domain.EmbeddingSettings, rps float64) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: %s needs an API key (set embedding.api_key or OPENAI_API_KEY)",
			domain.ErrEmbeddingUnavailable, settings.Provider)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: domain.EmbeddingDimensions()[settings.Model],
		}), nil
	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			RequestsPerSecond: rps,
		})
	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider %s", domain.ErrEmbeddingUnavailable, settings.Provider)
	}
}

// CreateLLMService creates the LLM service selected by settings.
func CreateLLMService(settings *domain.LLMSettings, rps float64) (driven.LLMService, error) {
	if settings == nil {
		return nil, domain.ErrLLMUnavailable
	}
	if !settings.IsConfigured() {
		hint := "llm.api_key or OPENAI_API_KEY"
		if settings.Provider == domain.AIProviderCopilot {
			hint = "llm.api_key or COPILOT_ACCESS_TOKEN"
		}
		return nil, fmt.Errorf("%w: %s needs an access token (set %s)", domain.ErrLLMUnavailable, settings.Provider, hint)
	}

	switch settings.Provider {
	case domain.AIProviderCopilot:
		return copilotllm.NewLLMService(copilotllm.Config{
			AccessToken:       settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			RequestsPerSecond: rps,
		})
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil
	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			RequestsPerSecond: rps,
		})
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider %s", domain.ErrLLMUnavailable, settings.Provider)
	}
}

// CreateReranker creates the reranker selected by settings. The lexical
// reranker needs no configuration.
func CreateReranker(settings *domain.RerankerSettings, rps float64) (driven.Reranker, error) {
	if settings == nil || settings.Provider == domain.AIProviderLexical || settings.Provider == "" {
		return lexical.New(), nil
	}
	if settings.Provider != domain.AIProviderHTTP {
		return nil, fmt.Errorf("%w: unsupported reranker provider %s", domain.ErrRerankerUnavailable, settings.Provider)
	}
	r, err := crossencoder.New(crossencoder.Config{
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		APIKey:            settings.APIKey,
		RequestsPerSecond: rps,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRerankerUnavailable, err)
	}
	return r, nil
}

// ValidateEmbeddingConfig creates an embedding service and pings it.
// Unconfigured settings are not an error: there is nothing to reach yet.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}
	svc, err := CreateEmbeddingService(settings, 0)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s unreachable: %w", domain.ErrEmbeddingUnavailable, settings.Provider, err)
	}
	return nil
}

// ValidateLLMConfig creates an LLM service and pings it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}
	svc, err := CreateLLMService(settings, 0)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s unreachable: %w", domain.ErrLLMUnavailable, settings.Provider, err)
	}
	return nil
}

// ValidateRerankerConfig builds the reranker and scores one sample passage.
func ValidateRerankerConfig(settings *domain.RerankerSettings, rps float64) error {
	if settings == nil || settings.Provider == "" || settings.Provider == domain.AIProviderLexical {
		return nil
	}
	r, err := CreateReranker(settings, rps)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if _, err := r.Score(ctx, "ping", []string{"ping"}); err != nil {
		return fmt.Errorf("%w: %s unreachable: %w", domain.ErrRerankerUnavailable, settings.Provider, err)
	}
	return nil
}
