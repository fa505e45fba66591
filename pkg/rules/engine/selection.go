package engine

import (
	"math"

	"keystone-mrm/arbiter/pkg/rules/ast"
	"keystone-mrm/arbiter/pkg/usecase"
)

// TierTable resolves tier severities. *ast.Ruleset implements it.
type TierTable interface {
	Severity(tierID string) (int, bool)
}

// SelectTriggeredRules returns every rule whose conditions hold for record,
// in configured order. Rules are independent of one another.
func SelectTriggeredRules(record *usecase.Record, rules []*ast.Rule) []*ast.Rule {
	triggered := make([]*ast.Rule, 0, len(rules))
	for _, rule := range rules {
		if EvaluateCondition(rule.Conditions, record) {
			triggered = append(triggered, rule)
		}
	}
	return triggered
}

// ResolveTier returns the highest-severity tier among the triggered rules,
// never lower than defaultTier. A rule only replaces the running tier when
// its severity is strictly greater, so the first rule to reach the maximum
// wins ties. Rules naming an unknown tier are ignored.
func ResolveTier(triggered []*ast.Rule, defaultTier string, tiers TierTable) string {
	tier := defaultTier
	maxSeverity, ok := tiers.Severity(defaultTier)
	if !ok {
		maxSeverity = math.MinInt
	}

	for _, rule := range triggered {
		severity, ok := tiers.Severity(rule.Tier)
		if !ok {
			continue
		}
		if severity > maxSeverity {
			tier = rule.Tier
			maxSeverity = severity
		}
	}
	return tier
}
