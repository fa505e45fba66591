package engine

import (
	"keystone-mrm/arbiter/pkg/rules/ast"
	"keystone-mrm/arbiter/pkg/usecase"
)

// EvaluateCondition reports whether cond holds for record. It is total: nil
// conditions, leaves missing a field or operator, unknown operators and type
// mismatches all evaluate to false rather than failing.
func EvaluateCondition(cond *ast.Condition, record *usecase.Record) bool {
	if cond == nil {
		return false
	}

	switch cond.Kind {
	case ast.ConditionAll:
		for _, child := range cond.Children {
			if !EvaluateCondition(child, record) {
				return false
			}
		}
		return true

	case ast.ConditionAny:
		for _, child := range cond.Children {
			if EvaluateCondition(child, record) {
				return true
			}
		}
		return false

	case ast.ConditionLeaf:
		return evaluateLeaf(cond, record)

	default:
		return false
	}
}

func evaluateLeaf(cond *ast.Condition, record *usecase.Record) bool {
	if cond.Field == "" || cond.Operator == "" {
		return false
	}

	var fieldValue any
	if record != nil {
		fieldValue, _ = record.Value(cond.Field)
	}

	var expected any
	if cond.Value != nil {
		expected = cond.Value.Raw
	}

	return evaluateOperator(cond.Operator, fieldValue, expected)
}
