package engine

import (
	"time"

	"keystone-mrm/arbiter/pkg/rules/ast"
)

// DecisionResult is the outcome of evaluating one use-case record against a
// ruleset. Every list is non-nil so the JSON form is stable.
type DecisionResult struct {
	IsModel           ast.Determination `json:"isModel"`
	Tier              string            `json:"tier"`
	TriggeredRules    []TriggeredRule   `json:"triggeredRules"`
	RationaleSummary  string            `json:"rationaleSummary"`
	RequiredArtifacts []string          `json:"requiredArtifacts"`
	MissingEvidence   []string          `json:"missingEvidence"`
	RiskFlags         []string          `json:"riskFlags"`
}

// TriggeredRule summarizes a rule whose conditions held.
type TriggeredRule struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Tier              string `json:"tier"`
	TriggeredCriteria string `json:"triggeredCriteria"`
}

// TriggeredRuleIDs returns the ids of the triggered rules in order.
func (d *DecisionResult) TriggeredRuleIDs() []string {
	ids := make([]string, len(d.TriggeredRules))
	for i, r := range d.TriggeredRules {
		ids[i] = r.ID
	}
	return ids
}

// IsMissing reports whether the artifact is in MissingEvidence.
func (d *DecisionResult) IsMissing(artifactID string) bool {
	for _, id := range d.MissingEvidence {
		if id == artifactID {
			return true
		}
	}
	return false
}

// Evaluation couples a DecisionResult with the ruleset snapshot that produced it.
type Evaluation struct {
	Result         *DecisionResult `json:"result"`
	RulesetName    string          `json:"rulesetName,omitempty"`
	RulesetVersion string          `json:"rulesetVersion,omitempty"`
	RulesetHash    string          `json:"rulesetHash,omitempty"`
	EvaluatedAt    time.Time       `json:"evaluatedAt"`
	Duration       time.Duration   `json:"-"`
}

// Explanation traces which rules and criteria matched a record.
type Explanation struct {
	Rules    []RuleTrace      `json:"rules"`
	Criteria []CriterionTrace `json:"criteria"`
	Result   *DecisionResult  `json:"result"`
}

// RuleTrace records whether one rule matched.
type RuleTrace struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Tier    string   `json:"tier"`
	Matched bool     `json:"matched"`
	Fields  []string `json:"fields"` // Record fields the rule reads
}

// CriterionTrace records whether one model-definition criterion matched.
type CriterionTrace struct {
	ID      string            `json:"id"`
	Result  ast.Determination `json:"result"`
	Matched bool              `json:"matched"`
}
