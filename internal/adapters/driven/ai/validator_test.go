package ai

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestConfigValidator_NothingToValidate(t *testing.T) {
	v := NewConfigValidator()

	assert.NoError(t, v.ValidateEmbedding(nil))
	assert.NoError(t, v.ValidateLLM(nil))
	assert.NoError(t, v.ValidateEmbedding(&domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI}))
	assert.NoError(t, v.ValidateLLM(&domain.LLMSettings{Provider: domain.AIProviderCopilot}))
	assert.NoError(t, v.ValidateReranker(nil))
	assert.NoError(t, v.ValidateReranker(&domain.RerankerSettings{Provider: domain.AIProviderLexical}))
}

func TestConfigValidator_PingsProviders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags", "/models":
			_, _ = w.Write([]byte(`{}`))
		case "/rerank":
			_, _ = w.Write([]byte(`[{"index":0,"score":0.9}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	v := NewConfigValidator()

	assert.NoError(t, v.ValidateEmbedding(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  server.URL,
		Model:    "nomic-embed-text",
	}))
	assert.NoError(t, v.ValidateLLM(&domain.LLMSettings{
		Provider: domain.AIProviderCopilot,
		BaseURL:  server.URL,
		APIKey:   "gho",
	}))
	assert.NoError(t, v.ValidateReranker(&domain.RerankerSettings{
		Provider: domain.AIProviderHTTP,
		BaseURL:  server.URL,
	}))
}

func TestConfigValidator_RejectedCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	err := NewConfigValidator().ValidateLLM(&domain.LLMSettings{
		Provider: domain.AIProviderOpenAI,
		BaseURL:  server.URL,
		APIKey:   "sk-bad",
	})

	require.ErrorIs(t, err, domain.ErrLLMUnavailable)
	require.ErrorIs(t, err, domain.ErrAuthInvalid)
}

func TestConfigValidator_RerankerFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	v := NewConfigValidator()

	err := v.ValidateReranker(&domain.RerankerSettings{Provider: domain.AIProviderHTTP, BaseURL: server.URL})
	require.ErrorIs(t, err, domain.ErrRerankerUnavailable)
	require.ErrorIs(t, err, domain.ErrAuthInvalid)

	err = v.ValidateReranker(&domain.RerankerSettings{Provider: domain.AIProviderHTTP})
	require.ErrorIs(t, err, domain.ErrRerankerUnavailable)
}
