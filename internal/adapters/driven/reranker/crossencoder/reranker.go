// Package crossencoder provides a reranker adapter for cross-encoders served over
// HTTP with a TEI-style /rerank endpoint.
package crossencoder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/docqa/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Reranker implements the interface.
var _ driven.Reranker = (*Reranker)(nil)

// DefaultTimeout bounds one /rerank call.
const DefaultTimeout = 30 * time.Second

// Config holds configuration for the HTTP reranker.
type Config struct {
	// BaseURL is the server root; /rerank is appended (required).
	BaseURL string

	// Model is sent with each request and reported by ModelName.
	Model string

	// APIKey is an optional bearer token.
	APIKey string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// RequestsPerSecond throttles requests. Zero disables throttling.
	RequestsPerSecond float64
}

// Reranker scores passages with a remote cross-encoder.
type Reranker struct {
	client *httpapi.Client
	model  string
}

type rerankRequest struct {
	Query    string   `json:"query"`
	Texts    []string `json:"texts"`
	Model    string   `json:"model,omitempty"`
	Truncate bool     `json:"truncate"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// New creates an HTTP reranker.
func New(cfg Config) (*Reranker, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("reranker: base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	var header map[string]string
	if cfg.APIKey != "" {
		header = map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	}
	return &Reranker{
		client: httpapi.New(httpapi.Options{
			Name:              "reranker",
			BaseURL:           cfg.BaseURL,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Header:            header,
		}),
		model: cfg.Model,
	}, nil
}

// Score returns one score per text in input order.
func (r *Reranker) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var results []rerankResult
	req := rerankRequest{Query: query, Texts: texts, Model: r.model, Truncate: true}
	if err := r.client.PostJSON(ctx, "/rerank", req, &results); err != nil {
		return nil, err
	}

	scores := make([]float64, len(texts))
	seen := make([]bool, len(texts))
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(texts) || seen[res.Index] {
			return nil, fmt.Errorf("reranker: invalid result index %d", res.Index)
		}
		seen[res.Index] = true
		scores[res.Index] = res.Score
	}
	if len(results) != len(texts) {
		return nil, fmt.Errorf("reranker: got %d scores for %d texts", len(results), len(texts))
	}
	return scores, nil
}

// ModelName returns the configured model name.
func (r *Reranker) ModelName() string {
	if r.model == "" {
		return "cross-encoder"
	}
	return r.model
}
