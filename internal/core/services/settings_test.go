package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// newSettings builds a settings service with a fixed environment.
func newSettings(store *memory.ConfigStore, env map[string]string) *SettingsService {
	svc := NewSettingsService(store, nil)
	svc.getenv = func(k string) string { return env[k] }
	return svc
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	svc := newSettings(memory.NewConfigStore(), nil)

	settings, err := svc.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"retrieval.k":                     int64(12),
		"retrieval.adaptive_k":            false,
		"retrieval.heuristics":            []any{"table_boost"},
		"llm.temperature":                 0.7,
		"cache.ttl":                       "1h",
		"cache.answer.capacity":           int64(5),
		"cache.persistent_ttl.embeddings": "48h",
		"cache.codec":                     "lz4",
		"embedding.provider":              "ollama",
	})
	svc := newSettings(store, nil)

	settings, err := svc.Get()

	require.NoError(t, err)
	assert.Equal(t, 12, settings.Retrieval.K)
	assert.False(t, settings.Retrieval.AdaptiveK)
	assert.Equal(t, []string{"table_boost"}, settings.Retrieval.Heuristics)
	assert.InDelta(t, 0.7, settings.LLM.Temperature, 1e-9)
	assert.Equal(t, time.Hour, settings.Cache.TTL)
	assert.Equal(t, 5, settings.Cache.Tiers[domain.CacheTypeAnswer].Capacity)
	assert.Equal(t, domain.DefaultCacheTTL, settings.Cache.Tiers[domain.CacheTypeAnswer].TTL)
	assert.Equal(t, 48*time.Hour, settings.Cache.PersistentTTL[domain.CacheTypeEmbeddings])
	assert.Equal(t, "lz4", settings.Cache.Codec)

	// Switching provider without a model picks that provider's default.
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
	assert.Equal(t, defaultOllamaURL, settings.Embedding.BaseURL)
}

func TestSettingsService_Get_InvalidValuesKeepDefaults(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"retrieval.k":        "lots",
		"retrieval.min_k":    int64(0),
		"llm.provider":       "anthropic",
		"cache.codec":        "gzip",
		"llm.temperature":    5.0,
		"cache.ttl":          int64(3600),
		"retrieval.top_k":    int64(3),
		"embedding.provider": "copilot",
	})
	svc := newSettings(store, nil)

	settings, err := svc.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), *settings)
}

func TestSettingsService_Get_EnvironmentOverrides(t *testing.T) {
	tests := []struct {
		name     string
		stored   map[string]any
		env      map[string]string
		embedKey string
		llmKey   string
	}{
		{
			name:     "openai key feeds embeddings, copilot token feeds llm",
			env:      map[string]string{EnvOpenAIKey: "sk-env", EnvCopilotToken: "gho-env"},
			embedKey: "sk-env",
			llmKey:   "gho-env",
		},
		{
			name:     "openai key feeds both when llm is openai",
			stored:   map[string]any{"llm.provider": "openai"},
			env:      map[string]string{EnvOpenAIKey: "sk-env", EnvCopilotToken: "gho-env"},
			embedKey: "sk-env",
			llmKey:   "sk-env",
		},
		{
			name:     "environment wins over stored keys",
			stored:   map[string]any{"embedding.api_key": "sk-file", "llm.api_key": "gho-file"},
			env:      map[string]string{EnvOpenAIKey: "sk-env"},
			embedKey: "sk-env",
			llmKey:   "gho-file",
		},
		{
			name:     "ollama embeddings ignore the openai key",
			stored:   map[string]any{"embedding.provider": "ollama"},
			env:      map[string]string{EnvOpenAIKey: "sk-env"},
			embedKey: "",
			llmKey:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newSettings(memory.NewConfigStore(tt.stored), tt.env)

			settings, err := svc.Get()

			require.NoError(t, err)
			assert.Equal(t, tt.embedKey, settings.Embedding.APIKey)
			assert.Equal(t, tt.llmKey, settings.LLM.APIKey)
		})
	}
}

func TestSettingsService_Get_PipelineConfigs(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"chunking.processors":              []any{"chunker"},
		"chunking.pipeline.guard.min_size": int64(3),
		"chunking.pipeline.broken":         true,
	})
	svc := newSettings(store, nil)

	settings, err := svc.Get()

	require.NoError(t, err)
	assert.Equal(t, []string{"chunker"}, settings.Chunking.Pipeline.Processors)
	assert.Equal(t, map[string]any{"min_size": int64(3)}, settings.Chunking.Pipeline.GetProcessorConfig("guard"))
	assert.Nil(t, settings.Chunking.Pipeline.GetProcessorConfig("broken"))
}

func TestSettingsService_Set(t *testing.T) {
	tests := []struct {
		key    string
		value  string
		stored any
	}{
		{"retrieval.k", "25", 25},
		{"retrieval.adaptive_k", "false", false},
		{"retrieval.similarity_threshold", "0.9", 0.9},
		{"retrieval.heuristics", "table_boost, numeric_sibling", []string{"table_boost", "numeric_sibling"}},
		{"cache.ttl", "30m", "30m0s"},
		{"cache.reranker.capacity", "10", 10},
		{"cache.query.capacity", "0", 0},
		{"cache.persistent_ttl.documents", "1h", "1h0m0s"},
		{"llm.provider", "OpenAI", "openai"},
		{"cache.codec", "none", "none"},
		{"chunking.pipeline.guard.min_size", "4", 4},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			store := memory.NewConfigStore()
			svc := newSettings(store, nil)

			require.NoError(t, svc.Set(tt.key, tt.value))

			got, ok := store.Get(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.stored, got)
		})
	}
}

func TestSettingsService_Set_Rejects(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"retrieval.k", "0"},
		{"retrieval.k", "ten"},
		{"retrieval.adaptive_k", "sometimes"},
		{"llm.temperature", "3"},
		{"llm.provider", "lexical"},
		{"embedding.provider", "copilot"},
		{"cache.ttl", "-1h"},
		{"cache.codec", "gzip"},
		{"cache.answer.capacity", "0"},
		{"no.such.key", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			store := memory.NewConfigStore()
			svc := newSettings(store, nil)

			err := svc.Set(tt.key, tt.value)

			require.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Empty(t, store.Keys())
		})
	}
}

func TestSettingsService_Set_RoundTripsThroughGet(t *testing.T) {
	svc := newSettings(memory.NewConfigStore(), nil)

	require.NoError(t, svc.Set("cache.query_embedding.ttl", "2h"))
	require.NoError(t, svc.Set("concurrency.max_concurrent_questions", "4"))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, settings.Cache.Tiers[domain.CacheTypeQueryEmbedding].TTL)
	assert.Equal(t, 4, settings.Concurrency.MaxConcurrentQuestions)
}

func TestSettingsService_Set_StoreError(t *testing.T) {
	store := &failingConfigStore{ConfigStore: memory.NewConfigStore(), failOn: "retrieval.k"}
	svc := NewSettingsService(store, nil)

	err := svc.Set("retrieval.k", "10")

	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "retrieval.k")
}

func TestSettingsService_Keys(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"llm.api_key": "gho-1234567890",
		"retrieval.k": int64(9),
	})
	svc := newSettings(store, nil)

	keys, err := svc.Keys()

	require.NoError(t, err)
	assert.Equal(t, "****7890", keys["llm.api_key"])
	assert.Equal(t, "", keys["embedding.api_key"])
	assert.Equal(t, "9", keys["retrieval.k"])
	assert.Equal(t, "12h0m0s", keys["cache.ttl"])
	assert.Equal(t, "insurance_boost,table_boost,numeric_sibling,coverage_sibling", keys["retrieval.heuristics"])
	assert.Len(t, keys, len(SettingKeys()))
}

func TestSettingKeys_Sorted(t *testing.T) {
	keys := SettingKeys()

	assert.IsNonDecreasing(t, keys)
	assert.Contains(t, keys, "cache.answer.capacity")
	assert.Contains(t, keys, "cache.persistent_ttl.processed_docs")
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	t.Run("ollama gets default model and url", func(t *testing.T) {
		store := memory.NewConfigStore()
		svc := newSettings(store, nil)

		require.NoError(t, svc.SetEmbeddingProvider(domain.AIProviderOllama, "", ""))

		settings, err := svc.Get()
		require.NoError(t, err)
		assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
		assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
		assert.Equal(t, defaultOllamaURL, settings.Embedding.BaseURL)
	})

	t.Run("ollama keeps a configured url", func(t *testing.T) {
		store := memory.NewConfigStore(map[string]any{"embedding.base_url": "http://gpu:11434"})
		svc := newSettings(store, nil)

		require.NoError(t, svc.SetEmbeddingProvider(domain.AIProviderOllama, "all-minilm", ""))

		assert.Equal(t, "http://gpu:11434", store.GetString("embedding.base_url"))
		assert.Equal(t, "all-minilm", store.GetString("embedding.model"))
	})

	t.Run("openai stores key", func(t *testing.T) {
		store := memory.NewConfigStore()
		svc := newSettings(store, nil)

		require.NoError(t, svc.SetEmbeddingProvider(domain.AIProviderOpenAI, "text-embedding-3-large", "sk-test"))

		assert.Equal(t, "openai", store.GetString("embedding.provider"))
		assert.Equal(t, "sk-test", store.GetString("embedding.api_key"))
		assert.Equal(t, "", store.GetString("embedding.base_url"))
	})

	t.Run("openai without key uses environment", func(t *testing.T) {
		store := memory.NewConfigStore()
		svc := newSettings(store, map[string]string{EnvOpenAIKey: "sk-env"})

		require.NoError(t, svc.SetEmbeddingProvider(domain.AIProviderOpenAI, "", ""))

		_, stored := store.Get("embedding.api_key")
		assert.False(t, stored)
	})

	t.Run("openai without any key", func(t *testing.T) {
		svc := newSettings(memory.NewConfigStore(), nil)

		err := svc.SetEmbeddingProvider(domain.AIProviderOpenAI, "", "")

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("copilot has no embeddings", func(t *testing.T) {
		svc := newSettings(memory.NewConfigStore(), nil)

		err := svc.SetEmbeddingProvider(domain.AIProviderCopilot, "", "token")

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	t.Run("copilot default model", func(t *testing.T) {
		store := memory.NewConfigStore()
		svc := newSettings(store, nil)

		require.NoError(t, svc.SetLLMProvider(domain.AIProviderCopilot, "", "gho-token"))

		assert.Equal(t, "copilot", store.GetString("llm.provider"))
		assert.Equal(t, domain.DefaultLLMModels()[domain.AIProviderCopilot], store.GetString("llm.model"))
		assert.Equal(t, "gho-token", store.GetString("llm.api_key"))
	})

	t.Run("ollama gets default model and url", func(t *testing.T) {
		store := memory.NewConfigStore()
		svc := newSettings(store, nil)

		require.NoError(t, svc.SetLLMProvider(domain.AIProviderOllama, "", ""))

		assert.Equal(t, "ollama", store.GetString("llm.provider"))
		assert.Equal(t, "llama3.2", store.GetString("llm.model"))
		assert.Equal(t, defaultOllamaURL, store.GetString("llm.base_url"))
	})

	t.Run("lexical rejected", func(t *testing.T) {
		svc := newSettings(memory.NewConfigStore(), nil)

		err := svc.SetLLMProvider(domain.AIProviderLexical, "", "")

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("store error", func(t *testing.T) {
		store := &failingConfigStore{ConfigStore: memory.NewConfigStore(), failOn: "llm.api_key"}
		svc := NewSettingsService(store, nil)

		err := svc.SetLLMProvider(domain.AIProviderOpenAI, "", "sk-test")

		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestSettingsService_Validate(t *testing.T) {
	tests := []struct {
		name    string
		stored  map[string]any
		env     map[string]string
		wantErr []string
	}{
		{
			name: "configured",
			env:  map[string]string{EnvOpenAIKey: "sk", EnvCopilotToken: "gho"},
		},
		{
			name:    "missing credentials",
			wantErr: []string{"embedding provider openai", "COPILOT_ACCESS_TOKEN"},
		},
		{
			name:    "http reranker without url",
			stored:  map[string]any{"reranker.provider": "http"},
			env:     map[string]string{EnvOpenAIKey: "sk", EnvCopilotToken: "gho"},
			wantErr: []string{"reranker.base_url"},
		},
		{
			name:    "inverted k bounds",
			stored:  map[string]any{"retrieval.min_k": int64(50)},
			env:     map[string]string{EnvOpenAIKey: "sk", EnvCopilotToken: "gho"},
			wantErr: []string{"retrieval.min_k (50)"},
		},
		{
			name:    "overlap too large",
			stored:  map[string]any{"chunking.overlap": int64(450)},
			env:     map[string]string{EnvOpenAIKey: "sk", EnvCopilotToken: "gho"},
			wantErr: []string{"chunking.overlap"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newSettings(memory.NewConfigStore(tt.stored), tt.env)

			err := svc.Validate()

			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestSettingsService_ValidateProviders(t *testing.T) {
	t.Run("nil validator", func(t *testing.T) {
		svc := newSettings(memory.NewConfigStore(), nil)
		assert.NoError(t, svc.ValidateProviders())
	})

	t.Run("passes settings through", func(t *testing.T) {
		validator := &fakeAIValidator{}
		svc := newSettings(memory.NewConfigStore(), map[string]string{EnvOpenAIKey: "sk"})
		svc.aiValidator = validator

		require.NoError(t, svc.ValidateProviders())
		require.NotNil(t, validator.embedding)
		assert.Equal(t, "sk", validator.embedding.APIKey)
		require.NotNil(t, validator.llm)
		assert.Equal(t, domain.AIProviderCopilot, validator.llm.Provider)
		require.NotNil(t, validator.reranker)
		assert.Equal(t, domain.AIProviderLexical, validator.reranker.Provider)
	})

	t.Run("joins failures", func(t *testing.T) {
		validator := &fakeAIValidator{
			embedErr:  assert.AnError,
			llmErr:    domain.ErrAuthInvalid,
			rerankErr: domain.ErrRerankerUnavailable,
		}
		svc := newSettings(memory.NewConfigStore(), nil)
		svc.aiValidator = validator

		err := svc.ValidateProviders()

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorIs(t, err, domain.ErrAuthInvalid)
		require.ErrorIs(t, err, domain.ErrRerankerUnavailable)
	})
}

func TestSettingsService_GetDefaults(t *testing.T) {
	svc := newSettings(memory.NewConfigStore(), nil)
	assert.Equal(t, domain.DefaultAppSettings(), svc.GetDefaults())
}

type failingConfigStore struct {
	*memory.ConfigStore
	failOn string
}

func (f *failingConfigStore) Set(key string, value any) error {
	if f.failOn == "" || key == f.failOn {
		return assert.AnError
	}
	return f.ConfigStore.Set(key, value)
}

type fakeAIValidator struct {
	embedErr  error
	llmErr    error
	rerankErr error
	embedding *domain.EmbeddingSettings
	llm       *domain.LLMSettings
	reranker  *domain.RerankerSettings
}

func (f *fakeAIValidator) ValidateEmbedding(cfg *domain.EmbeddingSettings) error {
	f.embedding = cfg
	return f.embedErr
}

func (f *fakeAIValidator) ValidateLLM(cfg *domain.LLMSettings) error {
	f.llm = cfg
	return f.llmErr
}

func (f *fakeAIValidator) ValidateReranker(cfg *domain.RerankerSettings) error {
	f.reranker = cfg
	return f.rerankErr
}
