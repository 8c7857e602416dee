package heuristics

import (
	"regexp"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

var (
	_ driven.ScoreAdjuster = (*BoostRules)(nil)
	_ driven.ScoreAdjuster = TableBoost{}
)

// BoostRule adds Boost to a candidate's score when the question matches
// Question and the candidate text matches Chunk.
type BoostRule struct {
	Name     string
	Question *regexp.Regexp
	Chunk    *regexp.Regexp
	Boost    float64
}

func rule(name, question, chunk string, boost float64) BoostRule {
	return BoostRule{
		Name:     name,
		Question: regexp.MustCompile(`(?i)` + question),
		Chunk:    regexp.MustCompile(`(?is)` + chunk),
		Boost:    boost,
	}
}

// DefaultBoostRules returns rules for insurance policy wording.
func DefaultBoostRules() []BoostRule {
	return []BoostRule{
		rule("grace_period", `grace\s+period`, `grace\s+period`, 0.3),
		rule("waiting_period", `waiting\s+period|pre-?existing`, `waiting\s+period.{0,200}?(months?|years?)`, 0.3),
		rule("maternity", `maternity|pregnan|childbirth`, `maternity`, 0.25),
		rule("room_rent", `room\s+rent|\bicu\b|intensive\s+care`, `room\s+rent|\bicu\b|\d+\s*%\s+of\s+(the\s+)?sum\s+insured`, 0.25),
		rule("no_claim_discount", `no[\s-]+claim\s+(discount|bonus)|\bncd\b`, `no[\s-]+claim\s+(discount|bonus)|\bncd\b`, 0.25),
		rule("cataract", `cataract`, `cataract`, 0.2),
		rule("ayush", `ayush`, `ayush`, 0.2),
		rule("organ_donor", `organ\s+donor`, `organ\s+donor`, 0.2),
		rule("health_check", `health\s+check`, `health\s+check`, 0.2),
		rule("definition", `\b(define|definition|meaning|what\s+(is|are)\s+(a|an|the)?\s*"?[a-z\- ]+"?\s*\?)`, `\bmeans\b`, 0.15),
	}
}

// BoostRules applies every matching rule to every candidate.
type BoostRules struct {
	rules []BoostRule
}

// NewBoostRules creates the "insurance_boost" adjuster.
func NewBoostRules(rules []BoostRule) *BoostRules {
	return &BoostRules{rules: rules}
}

// Name returns the registry name.
func (b *BoostRules) Name() string { return "insurance_boost" }

// Adjust returns the boosted scores.
func (b *BoostRules) Adjust(question string, candidates []domain.Candidate) []float64 {
	out := make([]float64, len(candidates))
	var active []BoostRule
	for _, r := range b.rules {
		if r.Question.MatchString(question) {
			active = append(active, r)
		}
	}
	for i, c := range candidates {
		out[i] = c.Score
		for _, r := range active {
			if r.Chunk.MatchString(c.Text) {
				out[i] += r.Boost
			}
		}
	}
	return out
}

// DefaultTableBoost is the score added to table chunks for numeric questions.
const DefaultTableBoost = 0.15

// TableBoost favours table chunks when the question asks for a figure.
type TableBoost struct {
	Boost float64
}

// Name returns the registry name.
func (TableBoost) Name() string { return "table_boost" }

// Adjust returns the boosted scores.
func (t TableBoost) Adjust(question string, candidates []domain.Candidate) []float64 {
	out := make([]float64, len(candidates))
	numeric := isNumericQuestion(question)
	for i, c := range candidates {
		out[i] = c.Score
		if numeric && c.Metadata.Type == domain.ChunkTypeTable {
			out[i] += t.Boost
		}
	}
	return out
}
