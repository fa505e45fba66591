package ast

// Visitor is called for every node reached by Walk.
type Visitor interface {
	VisitRule(*Rule) error
	VisitCriterion(*ModelCriterion) error
	VisitCondition(cond *Condition, depth int) error
}

// Walk traverses the rules and criteria of a ruleset, visiting each condition
// tree depth-first. It stops at the first error returned by the visitor.
func Walk(rs *Ruleset, visitor Visitor) error {
	for _, rule := range rs.Rules {
		if err := visitor.VisitRule(rule); err != nil {
			return err
		}
		if err := WalkCondition(rule.Conditions, visitor); err != nil {
			return err
		}
	}

	for _, criterion := range rs.Criteria {
		if err := visitor.VisitCriterion(criterion); err != nil {
			return err
		}
		if err := WalkCondition(criterion.Conditions, visitor); err != nil {
			return err
		}
	}

	return nil
}

// WalkCondition visits cond and its descendants depth-first. A nil cond is a no-op.
func WalkCondition(cond *Condition, visitor Visitor) error {
	return walkCondition(cond, visitor, 1)
}

func walkCondition(cond *Condition, visitor Visitor, depth int) error {
	if cond == nil {
		return nil
	}
	if err := visitor.VisitCondition(cond, depth); err != nil {
		return err
	}
	for _, child := range cond.Children {
		if err := walkCondition(child, visitor, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// CollectFields returns the distinct field names referenced by a condition
// tree, in first-seen order.
func CollectFields(cond *Condition) []string {
	c := &fieldCollector{seen: make(map[string]bool)}
	_ = WalkCondition(cond, c)
	return c.fields
}

type fieldCollector struct {
	seen   map[string]bool
	fields []string
}

func (c *fieldCollector) VisitRule(*Rule) error                { return nil }
func (c *fieldCollector) VisitCriterion(*ModelCriterion) error { return nil }

func (c *fieldCollector) VisitCondition(cond *Condition, _ int) error {
	if cond.IsLeaf() && cond.Field != "" && !c.seen[cond.Field] {
		c.seen[cond.Field] = true
		c.fields = append(c.fields, cond.Field)
	}
	return nil
}
