package driven

import "github.com/custodia-labs/docqa/internal/core/domain"

// AIConfigValidator checks that configured providers are reachable before
// settings are trusted. Unconfigured providers pass.
type AIConfigValidator interface {
	ValidateEmbedding(config *domain.EmbeddingSettings) error
	ValidateLLM(config *domain.LLMSettings) error

	// ValidateReranker scores a single sample passage. The lexical reranker
	// always passes.
	ValidateReranker(config *domain.RerankerSettings) error
}
