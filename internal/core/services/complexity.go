package services

import (
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var (
	complexPatterns = []string{
		"compare", "difference", "versus", " vs ", "between", "both", "either", "neither",
		"all of", "any of", "calculate", "compute", "sum", "total", "amount",
		"policy", "coverage", "benefit", "claim", "premium", "exclusion", "deductible",
		"co-pay", "waiting period",
	}
	mediumPatterns = []string{
		"when", "where", "how", "why", "what if", "condition", "requirement",
		"eligible", "qualify", "process", "procedure", "step", "document",
	}
)

func countMatches(text string, patterns []string) int {
	n := 0
	for _, p := range patterns {
		if strings.Contains(text, p) {
			n++
		}
	}
	return n
}

// ClassifyComplexity grades a question by its wording and length. Two
// complex patterns or more than fifteen words make a question complex.
func ClassifyComplexity(question string) domain.Complexity {
	// Padded so " vs " only matches the standalone word.
	q := " " + strings.ToLower(strings.TrimSpace(question)) + " "
	words := len(strings.Fields(q))
	complexCount := countMatches(q, complexPatterns)
	mediumCount := countMatches(q, mediumPatterns)

	switch {
	case complexCount >= 2, words > 15:
		return domain.ComplexityComplex
	case complexCount >= 1, mediumCount >= 2, words > 8:
		return domain.ComplexityMedium
	default:
		return domain.ComplexitySimple
	}
}

// AdaptiveK nudges the base k by complexity and clamps it to [minK, maxK].
func AdaptiveK(c domain.Complexity, base, minK, maxK int) int {
	k := base
	switch c {
	case domain.ComplexitySimple:
		k -= 2
	case domain.ComplexityMedium:
		k += 2
	case domain.ComplexityComplex:
		k += 5
	}
	if maxK < minK {
		maxK = minK
	}
	if k < minK {
		k = minK
	}
	if k > maxK {
		k = maxK
	}
	return k
}

// maxSimpleDepth caps the context of simple questions.
const maxSimpleDepth = 8

// RerankDepth is the number of reranked chunks kept for the context.
// Complex questions keep two more than base, simple ones five fewer.
func RerankDepth(c domain.Complexity, base int) int {
	if base <= 0 {
		base = 1
	}
	switch c {
	case domain.ComplexityComplex:
		return base + 2
	case domain.ComplexityMedium:
		return base
	default:
		return max(min(base-5, maxSimpleDepth), 1)
	}
}
