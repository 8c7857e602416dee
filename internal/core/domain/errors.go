package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates no extractor handles the document format.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrDimensionMismatch indicates an embedding does not match the dimension
	// the vector store was initialised with. Changing embedding models
	// requires clearing the store.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRerankerUnavailable indicates the reranker could not score candidates.
	ErrRerankerUnavailable = errors.New("reranker unavailable")

	// ErrVectorIndexUnavailable indicates the vector store could not be opened.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// Provider Errors.

	// ErrAuthInvalid indicates the provider rejected the credentials.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrForbidden indicates the credentials are valid but lack access
	// (inactive subscription, exhausted quota).
	ErrForbidden = errors.New("access forbidden")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrProviderTimeout indicates a provider call did not complete in time.
	ErrProviderTimeout = errors.New("provider timeout")
)

// DimensionMismatchError reports the expected and actual embedding sizes.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: store uses %d, got %d", e.Expected, e.Actual)
}

// Unwrap allows errors.Is(err, ErrDimensionMismatch).
func (e *DimensionMismatchError) Unwrap() error {
	return ErrDimensionMismatch
}
