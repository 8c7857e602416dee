package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings, LLM or reranking.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderCopilot is the GitHub Copilot chat completions API.
	AIProviderCopilot AIProvider = "copilot"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderLexical is the built-in term-overlap reranker.
	AIProviderLexical AIProvider = "lexical"

	// AIProviderHTTP is a cross-encoder served over HTTP (/rerank).
	AIProviderHTTP AIProvider = "http"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderCopilot, AIProviderOllama, AIProviderLexical, AIProviderHTTP:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderCopilot
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderCopilot:
		return "GitHub Copilot (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderLexical:
		return "Lexical (built-in)"
	case AIProviderHTTP:
		return "Cross-encoder (HTTP)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider (openai or ollama).
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint. Empty uses the provider default.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// BatchSize is the number of texts sent per embedding request.
	BatchSize int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if e.Provider != AIProviderOpenAI && e.Provider != AIProviderOllama {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider (copilot, openai or ollama).
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint. Empty uses the provider default.
	BaseURL string

	// APIKey is the API key or access token.
	APIKey string

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxTokens caps the answer length.
	MaxTokens int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	switch l.Provider {
	case AIProviderOllama:
		return true
	case AIProviderOpenAI, AIProviderCopilot:
		return l.APIKey != ""
	default:
		return false
	}
}

// RerankerSettings holds reranker configuration.
type RerankerSettings struct {
	// Provider is lexical (built-in) or http.
	Provider AIProvider

	// Model is the cross-encoder model name sent to the HTTP endpoint.
	Model string

	// BaseURL is the HTTP endpoint base.
	BaseURL string

	// APIKey is an optional bearer token.
	APIKey string
}

// ChunkingSettings holds chunker configuration.
type ChunkingSettings struct {
	// ChunkSize is the per-chunk token budget.
	ChunkSize int

	// Overlap is the token overlap used by the fallback splitter.
	Overlap int

	// MaxPreservedChars caps a single preserved definition span.
	MaxPreservedChars int

	// MaxMergedChars caps the size of merged overlapping preserved spans.
	MaxMergedChars int

	// ClaimedSkipRatio is the claimed fraction above which a section is skipped.
	ClaimedSkipRatio float64

	// OversizeFactor is the budget multiple above which chunks are re-split.
	OversizeFactor float64

	// Pipeline lists the chunk processors to run.
	Pipeline PipelineConfig
}

// RetrievalSettings holds question-answering configuration.
type RetrievalSettings struct {
	// K is the base number of chunks retrieved.
	K int

	// MinK and MaxK bound adaptive k.
	MinK int
	MaxK int

	// AdaptiveK enables complexity-based k selection.
	AdaptiveK bool

	// TopKReranked is the number of reranked chunks kept for the context.
	TopKReranked int

	// SimilarityThreshold is the maximum distance a hit may have.
	SimilarityThreshold float64

	// AnswerCache enables the answer cache.
	AnswerCache bool

	// RerankerCache enables caching reranker scores.
	RerankerCache bool

	// Heuristics lists the score adjusters and sibling selectors to apply.
	Heuristics []string
}

// VectorIndexSettings holds HNSW configuration.
type VectorIndexSettings struct {
	// M is the number of neighbours per node.
	M int

	// EfConstruction is the candidate list size during insertion.
	EfConstruction int

	// EfSearch is the candidate list size during search.
	EfSearch int
}

// CacheTierSettings sizes one in-memory tier.
type CacheTierSettings struct {
	Capacity int
	TTL      time.Duration
}

// CacheSettings holds the cache subsystem configuration.
type CacheSettings struct {
	// TTL is the base TTL of the query cache.
	TTL time.Duration

	// SweepEvery is the number of writes between TTL sweeps.
	SweepEvery int

	// Tiers sizes the bounded LRU tiers by type.
	Tiers map[CacheType]CacheTierSettings

	// Persistent enables the disk tier.
	Persistent bool

	// PersistentTTL is the default TTL per disk partition.
	PersistentTTL map[CacheType]time.Duration

	// Codec is the disk blob compression: zstd, lz4 or none.
	Codec string
}

// ConcurrencySettings bounds load on external providers.
type ConcurrencySettings struct {
	// MaxConcurrentQuestions is the question-answering ceiling.
	MaxConcurrentQuestions int

	// ProviderTimeout is the per-call timeout for external providers.
	ProviderTimeout time.Duration

	// RequestsPerSecond throttles each HTTP provider. Zero disables throttling.
	RequestsPerSecond float64
}

// QuestionLogSettings controls the question log.
type QuestionLogSettings struct {
	Enabled       bool
	RetentionDays int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	Reranker    RerankerSettings
	Chunking    ChunkingSettings
	Retrieval   RetrievalSettings
	VectorIndex VectorIndexSettings
	Cache       CacheSettings
	Concurrency ConcurrencySettings
	QuestionLog QuestionLogSettings
}

// DefaultCacheTTL is the base cache TTL.
const DefaultCacheTTL = 12 * time.Hour

// DefaultAppSettings returns settings with sensible defaults.
// API keys are left empty and must come from config or the environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:  AIProviderOpenAI,
			Model:     DefaultEmbeddingModels()[AIProviderOpenAI],
			BatchSize: 64,
		},
		LLM: LLMSettings{
			Provider:    AIProviderCopilot,
			Model:       DefaultLLMModels()[AIProviderCopilot],
			Temperature: 0.2,
			MaxTokens:   2048,
		},
		Reranker: RerankerSettings{
			Provider: AIProviderLexical,
			Model:    "BAAI/bge-reranker-large",
		},
		Chunking: ChunkingSettings{
			ChunkSize:         450,
			Overlap:           100,
			MaxPreservedChars: 2000,
			MaxMergedChars:    3000,
			ClaimedSkipRatio:  0.8,
			OversizeFactor:    1.5,
			Pipeline:          DefaultPipelineConfig(),
		},
		Retrieval: RetrievalSettings{
			K:                   35,
			MinK:                20,
			MaxK:                40,
			AdaptiveK:           true,
			TopKReranked:        7,
			SimilarityThreshold: 1.5,
			AnswerCache:         true,
			RerankerCache:       true,
			Heuristics:          DefaultHeuristics(),
		},
		VectorIndex: VectorIndexSettings{
			M:              32,
			EfConstruction: 128,
			EfSearch:       64,
		},
		Cache: CacheSettings{
			TTL:        DefaultCacheTTL,
			SweepEvery: 100,
			Tiers: map[CacheType]CacheTierSettings{
				CacheTypeQuery:          {Capacity: 0, TTL: DefaultCacheTTL},
				CacheTypeQueryEmbedding: {Capacity: 2000, TTL: 6 * DefaultCacheTTL},
				CacheTypeEmbedding:      {Capacity: 4000, TTL: 24 * DefaultCacheTTL},
				CacheTypeReranker:       {Capacity: 600, TTL: 2 * DefaultCacheTTL},
				CacheTypeAnswer:         {Capacity: 500, TTL: DefaultCacheTTL},
			},
			Persistent: true,
			PersistentTTL: map[CacheType]time.Duration{
				CacheTypeEmbeddings:    7 * 24 * time.Hour,
				CacheTypeDocuments:     3 * 24 * time.Hour,
				CacheTypeQueryResults:  6 * time.Hour,
				CacheTypeProcessedDocs: 7 * 24 * time.Hour,
			},
			Codec: "zstd",
		},
		Concurrency: ConcurrencySettings{
			MaxConcurrentQuestions: 2,
			ProviderTimeout:        50 * time.Second,
		},
		QuestionLog: QuestionLogSettings{
			Enabled:       true,
			RetentionDays: 30,
		},
	}
}

// DefaultHeuristics returns the score adjusters and sibling selectors enabled by default.
func DefaultHeuristics() []string {
	return []string{"insurance_boost", "table_boost", "numeric_sibling", "coverage_sibling"}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderOpenAI, AIProviderOllama}
}

// AllLLMProviders returns providers that support answer generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{AIProviderCopilot, AIProviderOpenAI, AIProviderOllama}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderCopilot: "gpt-4.1-2025-04-14",
		AIProviderOpenAI:  "gpt-4o-mini",
		AIProviderOllama:  "llama3.2",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds chunk processor pipeline configuration.
// Uses generic map-based config so new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// DefaultPipelineConfig returns the default pipeline: structure-aware chunking
// followed by the zero-chunk guard.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors:       []string{"chunker", "guard"},
		ProcessorConfigs: map[string]map[string]any{},
	}
}
