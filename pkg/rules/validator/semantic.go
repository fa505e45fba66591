package validator

import (
	"fmt"

	"keystone-mrm/arbiter/pkg/rules/ast"
	rulesErrors "keystone-mrm/arbiter/pkg/rules/errors"
	"keystone-mrm/arbiter/pkg/usecase"
)

// SemanticValidator checks references between sections, id uniqueness, and
// that every condition leaf names a real record field with an operator and
// value that can ever match it.
type SemanticValidator struct {
	strict bool
	errors *rulesErrors.ErrorList
}

// NewSemanticValidator creates a new semantic validator.
func NewSemanticValidator() *SemanticValidator {
	return &SemanticValidator{
		errors: rulesErrors.NewErrorList(),
	}
}

// Validate performs semantic validation on a ruleset.
func (v *SemanticValidator) Validate(rs *ast.Ruleset) error {
	v.errors = rulesErrors.NewErrorList()

	v.validateTiers(rs)
	v.validateArtifacts(rs)
	v.validateRules(rs)
	v.validateCriteria(rs)

	return v.errors.ToError()
}

func (v *SemanticValidator) validateTiers(rs *ast.Ruleset) {
	if rs.DefaultTier != "" {
		if _, ok := rs.Tier(rs.DefaultTier); !ok {
			v.errors.Report(rulesErrors.ErrorTypeSemantic, rulesErrors.Element{}, rs.Location,
				fmt.Sprintf("default tier %q is not defined", rs.DefaultTier),
				rulesErrors.SuggestReference("tier", rs.DefaultTier, rs.TierIDs()))
		}
	}

	// Tie-breaking relies on severity being a total order.
	bySeverity := make(map[int]string, len(rs.Tiers))
	for _, tier := range rs.Tiers {
		if other, dup := bySeverity[tier.Severity]; dup {
			v.errors.Report(rulesErrors.ErrorTypeSemantic, rulesErrors.Tier(tier.ID), tier.Location,
				fmt.Sprintf("shares severity %d with tier %q", tier.Severity, other), "")
			continue
		}
		bySeverity[tier.Severity] = tier.ID
	}
}

func (v *SemanticValidator) validateArtifacts(rs *ast.Ruleset) {
	seen := make(map[string]bool, len(rs.Artifacts))
	for i, a := range rs.Artifacts {
		elem := rulesErrors.Artifact(a.ID, i)
		if seen[a.ID] {
			v.errors.Report(rulesErrors.ErrorTypeSemantic, elem, a.Location, "duplicate artifact id", "")
		}
		seen[a.ID] = true

		for _, tier := range a.RequiredForTiers {
			if _, ok := rs.Tier(tier); !ok {
				v.errors.Report(rulesErrors.ErrorTypeSemantic, elem, a.Location,
					fmt.Sprintf("required for undefined tier %q", tier),
					rulesErrors.SuggestReference("tier", tier, rs.TierIDs()))
			}
		}
	}
}

func (v *SemanticValidator) validateRules(rs *ast.Ruleset) {
	seen := make(map[string]bool, len(rs.Rules))
	for i, rule := range rs.Rules {
		elem := rulesErrors.Rule(rule.ID, i)
		if seen[rule.ID] {
			v.errors.Report(rulesErrors.ErrorTypeSemantic, elem, rule.Location, "duplicate rule id", "")
		}
		seen[rule.ID] = true

		if _, ok := rs.Tier(rule.Tier); !ok {
			v.errors.Report(rulesErrors.ErrorTypeSemantic, elem, rule.Location,
				fmt.Sprintf("references undefined tier %q", rule.Tier),
				rulesErrors.SuggestReference("tier", rule.Tier, rs.TierIDs()))
		}

		for _, id := range rule.Effects.AddRequiredArtifacts {
			if _, ok := rs.Artifact(id); !ok {
				v.errors.Report(rulesErrors.ErrorTypeSemantic, elem, rule.Location,
					fmt.Sprintf("requires undefined artifact %q", id),
					rulesErrors.SuggestReference("artifact", id, rs.ArtifactIDs()))
			}
		}

		v.validateCondition(rule.Conditions, elem)
	}
}

func (v *SemanticValidator) validateCriteria(rs *ast.Ruleset) {
	seen := make(map[string]bool, len(rs.Criteria))
	for i, c := range rs.Criteria {
		elem := rulesErrors.Criterion(c.ID, i)
		if seen[c.ID] {
			v.errors.Report(rulesErrors.ErrorTypeSemantic, elem, c.Location, "duplicate model definition criterion id", "")
		}
		seen[c.ID] = true
		v.validateCondition(c.Conditions, elem)
	}
}

func (v *SemanticValidator) validateCondition(cond *ast.Condition, elem rulesErrors.Element) {
	if cond == nil {
		return
	}
	if cond.IsCombinator() {
		for _, child := range cond.Children {
			v.validateCondition(child, elem)
		}
		return
	}
	v.validateLeaf(cond, elem)
}

// validateLeaf resolves the leaf's field against the record field table and
// checks the operator and value can ever be satisfied by that field's type.
func (v *SemanticValidator) validateLeaf(cond *ast.Condition, elem rulesErrors.Element) {
	field, ok := usecase.LookupField(cond.Field)
	if !ok {
		v.errors.Report(rulesErrors.ErrorTypeSemantic, elem, cond.Location,
			fmt.Sprintf("unknown field %q", cond.Field),
			rulesErrors.SuggestFieldName(cond.Field, usecase.FieldNames()))
		return
	}

	if !cond.Operator.IsKnown() {
		v.errors.Report(rulesErrors.ErrorTypeSemantic, elem, cond.Location,
			fmt.Sprintf("unknown operator %q", cond.Operator),
			rulesErrors.SuggestOperator(string(field.Type)))
		return
	}

	if msg := checkOperand(field, cond.Operator, cond.Value, v.strict); msg != "" {
		v.errors.Report(rulesErrors.ErrorTypeSemantic, elem, cond.Location,
			fmt.Sprintf("field %q (%s) with operator %q: %s", field.Name, field.Type, cond.Operator, msg),
			rulesErrors.SuggestOperator(string(field.Type)))
	}
}

// checkOperand returns a description of why op/value can never match a field
// of the given type, or "" if the combination is meaningful.
func checkOperand(field *usecase.FieldInfo, op ast.Operator, value *ast.Value, strict bool) string {
	fieldType := ast.ValueType(field.Type)

	switch op {
	case ast.OperatorNotEmpty:
		if value != nil && strict {
			return "notEmpty takes no value"
		}
		return ""

	case ast.OperatorEq, ast.OperatorNeq:
		if value == nil {
			return "a value is required"
		}
		if value.Type != fieldType {
			return fmt.Sprintf("value %s is a %s", value.String(), value.Type)
		}
		return ""

	case ast.OperatorIn, ast.OperatorNotIn:
		items, ok := value.List()
		if !ok {
			return "value must be a list"
		}
		if field.Type == usecase.TypeStringSet {
			return "a list field cannot be a member of a list; use contains"
		}
		for _, item := range items {
			if t := ast.NewValue(item).Type; t != fieldType {
				return fmt.Sprintf("list item %s is a %s", ast.NewValue(item).String(), t)
			}
		}
		return ""

	case ast.OperatorContains:
		if value == nil {
			return "a value is required"
		}
		switch field.Type {
		case usecase.TypeStringSet, usecase.TypeString:
			if value.Type != ast.ValueTypeString {
				return fmt.Sprintf("value %s is a %s, want a string", value.String(), value.Type)
			}
			return ""
		default:
			return "contains applies to strings and lists only"
		}

	case ast.OperatorGt, ast.OperatorLt, ast.OperatorGte, ast.OperatorLte:
		if field.Type != usecase.TypeNumber {
			return "numeric comparison on a non-numeric field"
		}
		if value == nil || value.Type != ast.ValueTypeNumber {
			return "value must be a number"
		}
		return ""
	}

	return ""
}
