package engine

import "keystone-mrm/arbiter/pkg/rules/ast"

// CollectRequiredArtifacts returns the artifacts added by triggered rules
// followed by every artifact required for tier, deduplicated in first-seen
// order.
func CollectRequiredArtifacts(triggered []*ast.Rule, tier string, artifacts []*ast.ArtifactDefinition) []string {
	set := newOrderedSet()
	for _, rule := range triggered {
		set.add(rule.Effects.AddRequiredArtifacts...)
	}
	for _, a := range artifacts {
		if a.RequiredFor(tier) {
			set.add(a.ID)
		}
	}
	return set.items
}

// CollectRiskFlags returns the risk flags raised by triggered rules,
// deduplicated in first-seen order.
func CollectRiskFlags(triggered []*ast.Rule) []string {
	set := newOrderedSet()
	for _, rule := range triggered {
		set.add(rule.Effects.AddRiskFlags...)
	}
	return set.items
}

// orderedSet is an insertion-ordered string set.
type orderedSet struct {
	seen  map[string]bool
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool), items: []string{}}
}

func (s *orderedSet) add(values ...string) {
	for _, v := range values {
		if v == "" || s.seen[v] {
			continue
		}
		s.seen[v] = true
		s.items = append(s.items, v)
	}
}
