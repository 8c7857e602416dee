package driven

import "github.com/custodia-labs/docqa/internal/core/domain"

// ScoreAdjuster nudges reranker scores using domain-specific wording.
// Adjusters are optional and pluggable; they must not reorder or drop candidates.
type ScoreAdjuster interface {
	Name() string

	// Adjust returns the adjusted score for each candidate, in order.
	Adjust(question string, candidates []domain.Candidate) []float64
}

// SiblingSelector widens the final context with chunks the reranker dropped.
type SiblingSelector interface {
	Name() string

	// Select returns extra candidates from pool (the wider retrieval set) to append
	// after selected. It must not return candidates already in selected.
	Select(question string, selected, pool []domain.Candidate) []domain.Candidate
}
