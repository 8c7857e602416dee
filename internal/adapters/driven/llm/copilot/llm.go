// Package copilot provides an LLM service adapter for the GitHub Copilot
// chat completions API.
package copilot

import (
	"time"

	"github.com/custodia-labs/docqa/internal/adapters/driven/llm/openai"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.githubcopilot.com"
	DefaultModel   = "gpt-4.1-2025-04-14"
	DefaultTimeout = 60 * time.Second
)

// Headers the Copilot API expects from integrations.
const (
	integrationID = "vscode-chat"
	editorVersion = "VSCode/1.85.0"
	userAgent     = "docqa/1.0"
)

// Config holds configuration for the Copilot LLM service.
type Config struct {
	// AccessToken is the Copilot access token (required).
	AccessToken string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// Model is the chat model (default: gpt-4.1-2025-04-14).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// RequestsPerSecond throttles requests. Zero disables throttling.
	RequestsPerSecond float64
}

// NewLLMService creates a Copilot-backed LLM service.
func NewLLMService(cfg Config) (*openai.LLMService, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return openai.NewChatService("copilot", openai.LLMConfig{
		APIKey:            cfg.AccessToken,
		BaseURL:           cfg.BaseURL,
		Model:             cfg.Model,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}, map[string]string{
		"Copilot-Integration-Id": integrationID,
		"Editor-Version":         editorVersion,
		"User-Agent":             userAgent,
	})
}
