package validator

import (
	"fmt"

	"keystone-mrm/arbiter/pkg/rules/ast"
	rulesErrors "keystone-mrm/arbiter/pkg/rules/errors"
)

// StructuralValidator checks that every required piece of a ruleset is present.
type StructuralValidator struct {
	strict bool
	errors *rulesErrors.ErrorList
}

// NewStructuralValidator creates a new structural validator.
func NewStructuralValidator() *StructuralValidator {
	return &StructuralValidator{
		errors: rulesErrors.NewErrorList(),
	}
}

// Validate performs structural validation on a ruleset.
func (v *StructuralValidator) Validate(rs *ast.Ruleset) error {
	v.errors = rulesErrors.NewErrorList()

	if rs.DefaultTier == "" {
		v.errors.Report(rulesErrors.ErrorTypeStructural, rulesErrors.Element{}, rs.Location,
			"missing required field 'defaultTier'",
			rulesErrors.SuggestMissingField("defaultTier", "T1"))
	}

	if len(rs.Tiers) == 0 {
		v.errors.Report(rulesErrors.ErrorTypeStructural, rulesErrors.Element{}, rs.Location,
			"no tiers defined",
			"Add a 'tiers' mapping, e.g. T1: {name: Low, severity: 1}")
	}
	for _, tier := range rs.Tiers {
		if tier.Name == "" {
			v.errors.Report(rulesErrors.ErrorTypeStructural, rulesErrors.Tier(tier.ID), tier.Location,
				"missing 'name'",
				rulesErrors.SuggestMissingField("name", `"Low"`))
		}
	}

	for i, rule := range rs.Rules {
		v.validateRule(rule, rulesErrors.Rule(rule.ID, i))
	}
	for i, criterion := range rs.Criteria {
		v.validateCriterion(criterion, rulesErrors.Criterion(criterion.ID, i))
	}
	for i, artifact := range rs.Artifacts {
		v.validateArtifact(artifact, rulesErrors.Artifact(artifact.ID, i))
	}

	return v.errors.ToError()
}

func (v *StructuralValidator) validateRule(rule *ast.Rule, elem rulesErrors.Element) {
	if rule.ID == "" {
		v.errors.Report(rulesErrors.ErrorTypeStructural, elem, rule.Location,
			"missing 'id'",
			rulesErrors.SuggestMissingField("id", "automated-decisioning"))
	}
	if rule.Tier == "" {
		v.errors.Report(rulesErrors.ErrorTypeStructural, elem, rule.Location,
			"missing 'tier'",
			rulesErrors.SuggestMissingField("tier", "T2"))
	}
	if rule.Conditions == nil {
		v.errors.Report(rulesErrors.ErrorTypeStructural, elem, rule.Location, "no conditions", "")
		return
	}
	v.validateCondition(rule.Conditions, elem)
}

func (v *StructuralValidator) validateCriterion(c *ast.ModelCriterion, elem rulesErrors.Element) {
	if c.ID == "" {
		v.errors.Report(rulesErrors.ErrorTypeStructural, elem, c.Location,
			"missing 'id'",
			rulesErrors.SuggestMissingField("id", "owner-attested"))
	}
	if !c.Result.IsValid() {
		v.errors.Report(rulesErrors.ErrorTypeStructural, elem, c.Location,
			fmt.Sprintf("invalid result %q", c.Result),
			`Valid results: "Yes", "No", "Model-like"`)
	}
	if c.Conditions == nil {
		v.errors.Report(rulesErrors.ErrorTypeStructural, elem, c.Location, "no conditions", "")
		return
	}
	v.validateCondition(c.Conditions, elem)
}

func (v *StructuralValidator) validateArtifact(a *ast.ArtifactDefinition, elem rulesErrors.Element) {
	if a.ID == "" {
		v.errors.Report(rulesErrors.ErrorTypeStructural, elem, a.Location,
			"missing 'id'",
			rulesErrors.SuggestMissingField("id", "ModelCard"))
	}
	if a.Name == "" {
		v.errors.Report(rulesErrors.ErrorTypeStructural, elem, a.Location,
			"missing 'name'",
			rulesErrors.SuggestMissingField("name", `"Model card"`))
	}
	if a.Category == "" {
		v.errors.Report(rulesErrors.ErrorTypeStructural, elem, a.Location,
			"missing 'category'",
			rulesErrors.SuggestMissingField("category", "Documentation"))
	}
}

// validateCondition checks leaves carry a field and operator. Empty
// combinators are well defined (all: true, any: false) and only rejected in
// strict mode.
func (v *StructuralValidator) validateCondition(cond *ast.Condition, elem rulesErrors.Element) {
	switch cond.Kind {
	case ast.ConditionLeaf:
		if cond.Field == "" {
			v.errors.Report(rulesErrors.ErrorTypeStructural, elem, cond.Location,
				"condition is missing 'field'",
				rulesErrors.SuggestMissingField("field", "usageType"))
		}
		if cond.Operator == "" {
			v.errors.Report(rulesErrors.ErrorTypeStructural, elem, cond.Location,
				"condition is missing 'operator'",
				rulesErrors.SuggestMissingField("operator", "eq"))
		}
	case ast.ConditionAll, ast.ConditionAny:
		if len(cond.Children) == 0 && v.strict {
			v.errors.Report(rulesErrors.ErrorTypeStructural, elem, cond.Location,
				fmt.Sprintf("empty %q combinator", cond.Kind), "")
		}
		for _, child := range cond.Children {
			v.validateCondition(child, elem)
		}
	default:
		v.errors.Report(rulesErrors.ErrorTypeStructural, elem, cond.Location,
			fmt.Sprintf("unknown condition kind %q", cond.Kind), "")
	}
}
