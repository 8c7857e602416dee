// Package heuristics holds the optional score adjusters and sibling selectors
// applied after reranking. They encode document-domain wording (policy
// documents by default) and are enabled by name from configuration.
package heuristics

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Registry maps heuristic names to their implementations.
type Registry struct {
	adjusters map[string]driven.ScoreAdjuster
	selectors map[string]driven.SiblingSelector
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		adjusters: make(map[string]driven.ScoreAdjuster),
		selectors: make(map[string]driven.SiblingSelector),
	}
}

// NewDefaultRegistry creates a registry holding every built-in heuristic.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// RegisterDefaults registers the built-in heuristics.
func RegisterDefaults(r *Registry) {
	r.RegisterAdjuster(NewBoostRules(DefaultBoostRules()))
	r.RegisterAdjuster(TableBoost{Boost: DefaultTableBoost})
	r.RegisterSelector(NumericSibling{})
	r.RegisterSelector(CoverageSibling{})
}

// RegisterAdjuster adds a score adjuster under its Name.
func (r *Registry) RegisterAdjuster(a driven.ScoreAdjuster) {
	r.adjusters[a.Name()] = a
}

// RegisterSelector adds a sibling selector under its Name.
func (r *Registry) RegisterSelector(s driven.SiblingSelector) {
	r.selectors[s.Name()] = s
}

// Set is the resolved list of heuristics, in configuration order.
type Set struct {
	Adjusters []driven.ScoreAdjuster
	Selectors []driven.SiblingSelector
}

// Build resolves names. Unknown names are an error; an empty list disables every heuristic.
func (r *Registry) Build(names []string) (Set, error) {
	var set Set
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if a, ok := r.adjusters[name]; ok {
			set.Adjusters = append(set.Adjusters, a)
			continue
		}
		if s, ok := r.selectors[name]; ok {
			set.Selectors = append(set.Selectors, s)
			continue
		}
		return Set{}, fmt.Errorf("unknown heuristic: %s", name)
	}
	return set, nil
}

// Names returns every registered heuristic name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adjusters)+len(r.selectors))
	for name := range r.adjusters {
		names = append(names, name)
	}
	for name := range r.selectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
