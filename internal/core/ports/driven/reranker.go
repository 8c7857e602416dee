package driven

import "context"

// Reranker scores query/passage pairs with a model more expensive than vector search.
type Reranker interface {
	// Score returns one relevance score per text, in input order. Higher is more relevant.
	Score(ctx context.Context, query string, texts []string) ([]float64, error)

	// ModelName returns the reranker model name.
	ModelName() string
}
