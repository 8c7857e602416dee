package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorClass groups provider failures by how a caller should react.
type ErrorClass string

// Provider error classes.
const (
	// ErrorClassAuth means credentials are missing, invalid or lack access. Retrying will not help.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassRateLimit means the provider throttled the request. Retry after a delay.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork covers timeouts and connection failures. Retrying may help.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassUnknown is anything else.
	ErrorClassUnknown ErrorClass = "unknown"
)

// Stage identifies which external call failed.
type Stage string

// Pipeline stages that call external providers.
const (
	StageEmbedding Stage = "embedding"
	StageRerank    Stage = "rerank"
	StageLLM       Stage = "llm"
	StageExtract   Stage = "extract"
)

// ProviderError is a classified failure from an external provider.
// It is carried inside an Answer rather than returned to callers.
type ProviderError struct {
	// Provider is the provider name (openai, copilot, ollama, ...).
	Provider string

	// Stage is the pipeline stage that failed.
	Stage Stage

	// Class is the failure classification.
	Class ErrorClass

	// Err is the underlying error.
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s (%s): %v", e.Provider, e.Stage, e.Class, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// UserMessage returns a single user-facing sentence describing the failure
// without internal detail.
func (e *ProviderError) UserMessage() string {
	name := e.Provider
	if name == "" {
		name = string(e.Stage)
	}
	switch e.Class {
	case ErrorClassAuth:
		if errors.Is(e.Err, ErrForbidden) {
			return fmt.Sprintf("ERROR: %s %s provider access forbidden. Verify your subscription or quota.", name, e.Stage)
		}
		return fmt.Sprintf("ERROR: %s %s provider authentication failed. Check the configured API key.", name, e.Stage)
	case ErrorClassRateLimit:
		return fmt.Sprintf("ERROR: %s %s provider rate limit exceeded. Please wait and try again.", name, e.Stage)
	case ErrorClassNetwork:
		return fmt.Sprintf("ERROR: Network connection issue reaching the %s %s provider. Please try again.", name, e.Stage)
	default:
		return fmt.Sprintf("ERROR: %s %s request failed. Please try again.", name, e.Stage)
	}
}

// NewProviderError classifies err and wraps it. A nil err returns nil.
func NewProviderError(provider string, stage Stage, err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProviderError{
		Provider: provider,
		Stage:    stage,
		Class:    ClassifyError(err),
		Err:      err,
	}
}

// ClassifyError maps an error to an ErrorClass.
// Wrapped sentinels take precedence over message inspection.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassUnknown
	}

	switch {
	case errors.Is(err, ErrAuthInvalid), errors.Is(err, ErrForbidden):
		return ErrorClassAuth
	case errors.Is(err, ErrRateLimited):
		return ErrorClassRateLimit
	case errors.Is(err, ErrProviderTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return ErrorClassNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "authentication", "unauthorized", "api key", "access token"):
		return ErrorClassAuth
	case containsAny(msg, "forbidden", "subscription", "insufficient", "quota"):
		return ErrorClassAuth
	case containsAny(msg, "rate limit", "too many requests"):
		return ErrorClassRateLimit
	case containsAny(msg, "connection", "network", "timeout", "unreachable", "no such host"):
		return ErrorClassNetwork
	}
	return ErrorClassUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
