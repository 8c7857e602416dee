// Package lexical provides the built-in reranker: BM25-style term scoring
// over the candidate set, with no model or network access.
package lexical

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Reranker implements the interface.
var _ driven.Reranker = (*Reranker)(nil)

// BM25 parameters.
const (
	k1 = 1.2
	b  = 0.75
)

// ModelName is reported for the built-in reranker.
const ModelName = "lexical-bm25"

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true,
	"by": true, "do": true, "does": true, "for": true, "from": true, "how": true, "i": true,
	"if": true, "in": true, "is": true, "it": true, "my": true, "of": true, "on": true,
	"or": true, "the": true, "this": true, "to": true, "was": true, "what": true,
	"when": true, "which": true, "who": true, "will": true, "with": true,
}

// Reranker scores passages by weighted term overlap with the query.
type Reranker struct{}

// New creates a lexical reranker.
func New() *Reranker {
	return &Reranker{}
}

// Score returns a BM25 score per text. IDF is computed over texts, so scores
// are only comparable within one call.
func (r *Reranker) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scores := make([]float64, len(texts))
	terms := uniqueTerms(tokenize(query))
	if len(terms) == 0 || len(texts) == 0 {
		return scores, nil
	}

	freqs := make([]map[string]int, len(texts))
	lengths := make([]int, len(texts))
	df := make(map[string]int, len(terms))
	total := 0
	for i, text := range texts {
		tokens := tokenize(text)
		lengths[i] = len(tokens)
		total += len(tokens)
		tf := make(map[string]int)
		for _, tok := range tokens {
			tf[tok]++
		}
		freqs[i] = tf
		for _, t := range terms {
			if tf[t] > 0 {
				df[t]++
			}
		}
	}
	avg := float64(total) / float64(len(texts))
	if avg == 0 {
		return scores, nil
	}

	n := float64(len(texts))
	for i := range texts {
		norm := k1 * (1 - b + b*float64(lengths[i])/avg)
		for _, t := range terms {
			tf := float64(freqs[i][t])
			if tf == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df[t])+0.5)/(float64(df[t])+0.5))
			scores[i] += idf * tf * (k1 + 1) / (tf + norm)
		}
	}
	return scores, nil
}

// ModelName returns the reranker name.
func (r *Reranker) ModelName() string {
	return ModelName
}

func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := words[:0]
	for _, w := range words {
		if !stopwords[w] {
			out = append(out, w)
		}
	}
	return out
}

func uniqueTerms(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
