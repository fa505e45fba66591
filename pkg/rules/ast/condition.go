package ast

// ConditionKind discriminates the variants of a Condition.
type ConditionKind string

const (
	ConditionLeaf ConditionKind = "leaf" // field operator value
	ConditionAll  ConditionKind = "all"  // AND of children
	ConditionAny  ConditionKind = "any"  // OR of children
)

// Operator is a leaf comparison operator.
type Operator string

const (
	OperatorEq       Operator = "eq"
	OperatorNeq      Operator = "neq"
	OperatorIn       Operator = "in"
	OperatorNotIn    Operator = "notIn"
	OperatorContains Operator = "contains"
	OperatorNotEmpty Operator = "notEmpty"
	OperatorGt       Operator = "gt"
	OperatorLt       Operator = "lt"
	OperatorGte      Operator = "gte"
	OperatorLte      Operator = "lte"
)

// Operators lists every supported operator.
var Operators = []Operator{
	OperatorEq, OperatorNeq, OperatorIn, OperatorNotIn, OperatorContains,
	OperatorNotEmpty, OperatorGt, OperatorLt, OperatorGte, OperatorLte,
}

// IsKnown reports whether op is a supported operator.
func (op Operator) IsKnown() bool {
	for _, known := range Operators {
		if op == known {
			return true
		}
	}
	return false
}

// IsNumeric reports whether op compares numbers.
func (op Operator) IsNumeric() bool {
	switch op {
	case OperatorGt, OperatorLt, OperatorGte, OperatorLte:
		return true
	}
	return false
}

// Condition is a node of a rule's condition tree: either a leaf comparison or
// an all/any combinator over child conditions.
type Condition struct {
	Kind     ConditionKind
	Field    string       // Leaf only
	Operator Operator     // Leaf only
	Value    *Value       // Leaf only; nil when omitted
	Children []*Condition // All/Any only
	Location Location
}

// Leaf builds a leaf condition. It is mostly useful in tests and for rulesets
// assembled in code.
func Leaf(field string, op Operator, value any) *Condition {
	return &Condition{Kind: ConditionLeaf, Field: field, Operator: op, Value: NewValue(value)}
}

// All builds an AND combinator.
func All(children ...*Condition) *Condition {
	return &Condition{Kind: ConditionAll, Children: children}
}

// Any builds an OR combinator.
func Any(children ...*Condition) *Condition {
	return &Condition{Kind: ConditionAny, Children: children}
}

// IsLeaf returns true for leaf comparisons.
func (c *Condition) IsLeaf() bool {
	return c.Kind == ConditionLeaf
}

// IsCombinator returns true for all/any nodes.
func (c *Condition) IsCombinator() bool {
	return c.Kind == ConditionAll || c.Kind == ConditionAny
}

// Depth returns the nesting depth of the tree rooted at c (a leaf has depth 1).
func (c *Condition) Depth() int {
	if c == nil {
		return 0
	}
	deepest := 0
	for _, child := range c.Children {
		if d := child.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}
