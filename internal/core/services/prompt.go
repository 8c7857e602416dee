package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// QuestionType tags what kind of answer a question expects.
type QuestionType string

// Question types with specialised instructions.
const (
	QuestionNumeric     QuestionType = "numeric"
	QuestionDefinition  QuestionType = "definition"
	QuestionTemporal    QuestionType = "temporal"
	QuestionCoverage    QuestionType = "coverage"
	QuestionProcedural  QuestionType = "procedural"
	QuestionEligibility QuestionType = "eligibility"
)

var questionTypes = []struct {
	typ         QuestionType
	pattern     *regexp.Regexp
	instruction string
}{
	{
		QuestionNumeric,
		regexp.MustCompile(`(?i)\b(how (much|many)|percent(age)?|amount|limit|maximum|minimum|rate|cost|fee)\b|%`),
		"Quote the exact figures, percentages and currency amounts from the context.",
	},
	{
		QuestionDefinition,
		regexp.MustCompile(`(?i)\b(define|definition|meaning|what (is|are) (a|an|the)\b|what does .* mean)`),
		"Give the definition as worded in the document before paraphrasing it.",
	},
	{
		QuestionTemporal,
		regexp.MustCompile(`(?i)\b(when|how long|period|days?|months?|years?|deadline|within)\b`),
		"State every time period and when it starts counting.",
	},
	{
		QuestionCoverage,
		regexp.MustCompile(`(?i)\b(cover(ed|s|age)?|exclu\w*|payable|reimburs\w*)\b`),
		"Say clearly whether it is covered, then list any conditions, sub-limits and exclusions.",
	},
	{
		QuestionProcedural,
		regexp.MustCompile(`(?i)\b(how (do|can|to|should)|process|procedure|steps?|submit|apply|file a)\b`),
		"Answer as ordered steps and name any documents required.",
	},
	{
		QuestionEligibility,
		regexp.MustCompile(`(?i)\b(eligib\w*|qualif\w*|who can|entitled|age limit)\b`),
		"State the eligibility criteria and any age or relationship limits.",
	},
}

// ClassifyQuestion returns every question type the question matches, in a fixed order.
func ClassifyQuestion(question string) []QuestionType {
	var out []QuestionType
	for _, qt := range questionTypes {
		if qt.pattern.MatchString(question) {
			out = append(out, qt.typ)
		}
	}
	return out
}

// Instructions returns the specialised instructions for question, one per line.
func Instructions(question string) string {
	var lines []string
	for _, qt := range questionTypes {
		if qt.pattern.MatchString(question) {
			lines = append(lines, "- "+qt.instruction)
		}
	}
	return strings.Join(lines, "\n")
}

// FormatContext renders candidates as numbered context blocks:
// "[i] (Type, Page p, hierarchy)" followed by the chunk text.
func FormatContext(candidates []domain.Candidate) string {
	var b strings.Builder
	for i, c := range candidates {
		m := c.Metadata
		fmt.Fprintf(&b, "[%d] (%s, Page %d", i+1, m.Type.Title(), m.Page)
		switch {
		case m.Hierarchy != "":
			fmt.Fprintf(&b, ", %s", m.Hierarchy)
		case m.SectionNumber != "":
			fmt.Fprintf(&b, ", %s", m.SectionNumber)
		}
		if m.Heading != "" {
			fmt.Fprintf(&b, " %s", m.Heading)
		}
		b.WriteString(")\n")
		b.WriteString(strings.TrimSpace(c.Text))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// PromptBuilder renders the answer prompt from the template in a PromptStore.
type PromptBuilder struct {
	store driven.PromptStore
}

// NewPromptBuilder creates a prompt builder.
func NewPromptBuilder(store driven.PromptStore) *PromptBuilder {
	return &PromptBuilder{store: store}
}

// Build renders the answer prompt for question over candidates.
func (p *PromptBuilder) Build(question string, candidates []domain.Candidate) (string, error) {
	tmpl, err := p.store.Load(driven.PromptAnswer)
	if err != nil {
		return "", fmt.Errorf("load prompt: %w", err)
	}
	instructions := Instructions(question)
	if instructions == "" {
		instructions = "- Answer concisely using only the context."
	}
	r := strings.NewReplacer(
		"{{instructions}}", instructions,
		"{{context}}", FormatContext(candidates),
		"{{question}}", strings.TrimSpace(question),
	)
	return r.Replace(tmpl), nil
}
