package ai

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator reaches out to each configured provider once.
type ConfigValidator struct{}

// NewConfigValidator creates a validator. Validation calls are not throttled.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	return ValidateEmbeddingConfig(config)
}

func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	return ValidateLLMConfig(config)
}

func (v *ConfigValidator) ValidateReranker(config *domain.RerankerSettings) error {
	return ValidateRerankerConfig(config, 0)
}
