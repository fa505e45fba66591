package engine

import (
	"keystone-mrm/arbiter/pkg/rules/ast"
	"keystone-mrm/arbiter/pkg/usecase"
)

// Evaluate computes the decision for record under rs. It is a pure function:
// it performs no I/O, mutates neither argument, and returns identical output
// for identical input. A nil ruleset yields a "No" determination with empty
// lists; a nil record is treated as an empty record.
func Evaluate(record *usecase.Record, rs *ast.Ruleset) *DecisionResult {
	if record == nil {
		empty := usecase.New(usecase.Record{}, nil)
		record = &empty
	}
	if rs == nil {
		return &DecisionResult{
			IsModel:           ast.DeterminationNo,
			TriggeredRules:    []TriggeredRule{},
			RequiredArtifacts: []string{},
			MissingEvidence:   []string{},
			RiskFlags:         []string{},
		}
	}

	triggered := SelectTriggeredRules(record, rs.Rules)
	tier := ResolveTier(triggered, rs.DefaultTier, rs)
	isModel := DetermineIsModel(record, rs.Criteria)
	flags := CollectRiskFlags(triggered)
	required := CollectRequiredArtifacts(triggered, tier, rs.Artifacts)
	missing := DetectMissingEvidence(record, required, rs)

	return &DecisionResult{
		IsModel:           isModel,
		Tier:              tier,
		TriggeredRules:    summarize(triggered),
		RationaleSummary:  GenerateRationale(tier, isModel, triggered, flags, rs),
		RequiredArtifacts: required,
		MissingEvidence:   missing,
		RiskFlags:         flags,
	}
}

func summarize(rules []*ast.Rule) []TriggeredRule {
	out := make([]TriggeredRule, len(rules))
	for i, r := range rules {
		out[i] = TriggeredRule{
			ID:                r.ID,
			Name:              r.Name,
			Tier:              r.Tier,
			TriggeredCriteria: r.Effects.TriggeredCriteria,
		}
	}
	return out
}
