package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		provider AIProvider
		expected bool
	}{
		{AIProviderOpenAI, true},
		{AIProviderCopilot, true},
		{AIProviderOllama, true},
		{AIProviderLexical, true},
		{AIProviderHTTP, true},
		{AIProvider(""), false},
		{AIProvider("anthropic"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

func TestAIProvider_RequiresAPIKey(t *testing.T) {
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderCopilot.RequiresAPIKey())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.False(t, AIProviderLexical.RequiresAPIKey())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	assert.False(t, EmbeddingSettings{}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk"}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderCopilot, APIKey: "x"}.IsConfigured())
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.False(t, LLMSettings{Provider: AIProviderCopilot}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderCopilot, APIKey: "ghu_x"}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderOpenAI, APIKey: "sk"}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderLexical, APIKey: "x"}.IsConfigured())
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, 450, s.Chunking.ChunkSize)
	assert.Equal(t, 100, s.Chunking.Overlap)
	assert.InDelta(t, 1.5, s.Chunking.OversizeFactor, 1e-9)
	assert.Equal(t, []string{"chunker", "guard"}, s.Chunking.Pipeline.Processors)

	assert.Equal(t, 35, s.Retrieval.K)
	assert.Equal(t, 20, s.Retrieval.MinK)
	assert.Equal(t, 40, s.Retrieval.MaxK)
	assert.InDelta(t, 1.5, s.Retrieval.SimilarityThreshold, 1e-9)

	assert.Equal(t, 32, s.VectorIndex.M)
	assert.Equal(t, 128, s.VectorIndex.EfConstruction)
	assert.Equal(t, 64, s.VectorIndex.EfSearch)

	require.Contains(t, s.Cache.Tiers, CacheTypeQueryEmbedding)
	assert.Equal(t, 2000, s.Cache.Tiers[CacheTypeQueryEmbedding].Capacity)
	assert.Equal(t, 6*DefaultCacheTTL, s.Cache.Tiers[CacheTypeQueryEmbedding].TTL)
	for _, typ := range PersistentCacheTypes() {
		assert.Contains(t, s.Cache.PersistentTTL, typ)
	}

	assert.Equal(t, 2, s.Concurrency.MaxConcurrentQuestions)
	assert.Equal(t, AIProviderCopilot, s.LLM.Provider)
}

func TestPipelineConfig_GetProcessorConfig(t *testing.T) {
	var empty PipelineConfig
	assert.Nil(t, empty.GetProcessorConfig("chunker"))

	cfg := PipelineConfig{
		ProcessorConfigs: map[string]map[string]any{"chunker": {"chunk_size": 300}},
	}
	assert.Equal(t, 300, cfg.GetProcessorConfig("chunker")["chunk_size"])
}
