package heuristics

import (
	"regexp"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

var (
	_ driven.SiblingSelector = NumericSibling{}
	_ driven.SiblingSelector = CoverageSibling{}
)

type candidateKey struct {
	doc   string
	chunk int
}

func keyOf(c domain.Candidate) candidateKey {
	return candidateKey{doc: c.Metadata.DocID, chunk: c.Metadata.ChunkID}
}

func keysOf(cs []domain.Candidate) []candidateKey {
	keys := make([]candidateKey, len(cs))
	for i, c := range cs {
		keys[i] = keyOf(c)
	}
	return keys
}

// firstMatch returns the first pool candidate not in selected that satisfies ok.
// The pool is in retrieval order so the nearest qualifying chunk wins.
func firstMatch(selected, pool []domain.Candidate, ok func(domain.Candidate) bool) []domain.Candidate {
	taken := keysOf(selected)
	for _, c := range pool {
		if containsCandidate(taken, keyOf(c)) {
			continue
		}
		if ok(c) {
			return []domain.Candidate{c}
		}
	}
	return nil
}

// NumericSibling adds back one chunk carrying a figure (amount, percentage,
// duration) related to a numeric question. Rerankers tend to drop such chunks
// when their wording differs from the question.
type NumericSibling struct{}

// Name returns the registry name.
func (NumericSibling) Name() string { return "numeric_sibling" }

// Select returns at most one extra candidate.
func (NumericSibling) Select(question string, selected, pool []domain.Candidate) []domain.Candidate {
	if !isNumericQuestion(question) {
		return nil
	}
	terms := keyTerms(question)
	if len(terms) == 0 {
		return nil
	}
	for _, c := range selected {
		if hasFigure(c.Text) && sharesTerm(c.Text, terms) {
			return nil
		}
	}
	return firstMatch(selected, pool, func(c domain.Candidate) bool {
		return hasFigure(c.Text) && sharesTerm(c.Text, terms)
	})
}

var (
	coverageQuestion = regexp.MustCompile(`(?i)\b(covered|cover|covers|coverage|excluded|exclusion|payable|reimburs\w*)\b`)
	exclusionText    = regexp.MustCompile(`(?i)\b(exclu\w+|not\s+(be\s+)?(covered|payable)|shall\s+not)\b`)
)

// CoverageSibling adds back one exclusion clause for "is X covered" questions
// so the answer can weigh cover against its exclusions.
type CoverageSibling struct{}

// Name returns the registry name.
func (CoverageSibling) Name() string { return "coverage_sibling" }

// Select returns at most one extra candidate.
func (CoverageSibling) Select(question string, selected, pool []domain.Candidate) []domain.Candidate {
	if !coverageQuestion.MatchString(question) {
		return nil
	}
	var terms []string
	for _, t := range keyTerms(question) {
		if !coverageQuestion.MatchString(t) {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return nil
	}
	return firstMatch(selected, pool, func(c domain.Candidate) bool {
		return exclusionText.MatchString(c.Text) && sharesTerm(c.Text, terms)
	})
}
