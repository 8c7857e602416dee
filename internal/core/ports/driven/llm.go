package driven

import "context"

// LLMService generates answers from a fully rendered prompt.
// The provider (Copilot, OpenAI or Ollama) is selected once at construction.
type LLMService interface {
	// Generate produces text completion from a prompt.
	// Errors wrap domain.ErrAuthInvalid, domain.ErrForbidden, domain.ErrRateLimited
	// or domain.ErrProviderTimeout where the provider reports them.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ProviderName returns the provider identifier (copilot, openai, ollama).
	ProviderName() string

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}
