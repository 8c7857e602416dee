package heuristics

import (
	"regexp"
	"strings"
	"unicode"
)

var stopwords = map[string]bool{
	"what": true, "which": true, "when": true, "where": true, "does": true, "this": true,
	"that": true, "with": true, "from": true, "there": true, "under": true, "policy": true,
	"have": true, "will": true, "would": true, "should": true, "about": true, "their": true,
	"they": true, "these": true, "those": true, "into": true, "much": true, "many": true,
	"more": true, "than": true, "after": true, "before": true, "been": true, "being": true,
}

// keyTerms returns the lower-case words of four or more letters that are not stopwords.
func keyTerms(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
	var terms []string
	seen := make(map[string]bool)
	for _, w := range words {
		w = strings.Trim(w, "-")
		if len(w) < 4 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	return terms
}

// sharesTerm reports whether text contains any of terms.
func sharesTerm(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, t := range terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

var (
	numericPattern  = regexp.MustCompile(`(?i)\d+(\.\d+)?\s*(%|percent|days?|months?|years?|rs\.?|inr|usd|\$|lakhs?|crores?)|(?:rs\.?|inr|\$)\s*\d`)
	numericQuestion = regexp.MustCompile(`(?i)\b(how (much|many|long)|percent(age)?|limit|amount|maximum|minimum|cap|sub-?limit|days?|months?|years?|period)\b|%`)
)

// isNumericQuestion reports whether question asks for a figure.
func isNumericQuestion(question string) bool {
	return numericQuestion.MatchString(question)
}

// hasFigure reports whether text contains an amount, percentage or duration.
func hasFigure(text string) bool {
	return numericPattern.MatchString(text)
}

func containsCandidate(list []candidateKey, k candidateKey) bool {
	for _, c := range list {
		if c == k {
			return true
		}
	}
	return false
}
