package engine

import (
	"strings"

	"keystone-mrm/arbiter/pkg/rules/ast"
)

// evaluateOperator applies op to a record field value and a condition operand.
// Field values are string, bool, float64 or []string; operands are string,
// bool, float64, []any or nil.
func evaluateOperator(op ast.Operator, actual, expected any) bool {
	switch op {
	case ast.OperatorEq:
		return strictEqual(actual, expected)

	case ast.OperatorNeq:
		return !strictEqual(actual, expected)

	case ast.OperatorIn:
		items, ok := expected.([]any)
		if !ok {
			return false
		}
		return member(actual, items)

	case ast.OperatorNotIn:
		items, ok := expected.([]any)
		if !ok {
			return true
		}
		return !member(actual, items)

	case ast.OperatorContains:
		return evaluateContains(actual, expected)

	case ast.OperatorNotEmpty:
		return evaluateNotEmpty(actual)

	case ast.OperatorGt, ast.OperatorLt, ast.OperatorGte, ast.OperatorLte:
		return evaluateNumeric(op, actual, expected)

	default:
		return false
	}
}

// strictEqual compares without coercion: "1" never equals 1 and true never
// equals "true". Lists are equal when their elements are equal in order. A
// missing field value never equals anything.
func strictEqual(actual, expected any) bool {
	switch a := actual.(type) {
	case string:
		e, ok := expected.(string)
		return ok && a == e
	case bool:
		e, ok := expected.(bool)
		return ok && a == e
	case float64:
		e, ok := expected.(float64)
		return ok && a == e
	case []string:
		e, ok := expected.([]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for i := range a {
			if s, ok := e[i].(string); !ok || s != a[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func member(actual any, items []any) bool {
	for _, item := range items {
		if strictEqual(actual, item) {
			return true
		}
	}
	return false
}

// evaluateContains tests list membership for list fields and substring
// inclusion for string fields.
func evaluateContains(actual, expected any) bool {
	switch a := actual.(type) {
	case []string:
		for _, item := range a {
			if strictEqual(item, expected) {
				return true
			}
		}
		return false
	case string:
		e, ok := expected.(string)
		return ok && strings.Contains(a, e)
	default:
		return false
	}
}

func evaluateNotEmpty(actual any) bool {
	switch a := actual.(type) {
	case []string:
		return len(a) > 0
	case string:
		return strings.TrimSpace(a) != ""
	default:
		return actual != nil
	}
}

func evaluateNumeric(op ast.Operator, actual, expected any) bool {
	a, ok := actual.(float64)
	if !ok {
		return false
	}
	e, ok := expected.(float64)
	if !ok {
		return false
	}

	switch op {
	case ast.OperatorGt:
		return a > e
	case ast.OperatorLt:
		return a < e
	case ast.OperatorGte:
		return a >= e
	case ast.OperatorLte:
		return a <= e
	}
	return false
}
