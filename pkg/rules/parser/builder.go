package parser

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"keystone-mrm/arbiter/pkg/rules/ast"
	rulesErrors "keystone-mrm/arbiter/pkg/rules/errors"
)

// singletonSections may appear in only one file of a ruleset. List sections
// (rules, artifacts, modelDefinition) are concatenated in file order.
var singletonSections = map[string]bool{
	"version":     true,
	"name":        true,
	"description": true,
	"defaultTier": true,
	"tiers":       true,
	"evidence":    true,
}

// builder constructs a Ruleset from one or more YAML documents, keeping
// source locations and accumulating every structural error it finds.
type builder struct {
	sourcePath string
	maxDepth   int
	errors     *rulesErrors.ErrorList
	ruleset    *ast.Ruleset
	sections   map[string]ast.Location
}

// newBuilder creates a builder for an empty ruleset.
func newBuilder(maxDepth int) *builder {
	return &builder{
		maxDepth: maxDepth,
		errors:   rulesErrors.NewErrorList(),
		ruleset: &ast.Ruleset{
			Tiers:     make([]*ast.TierDefinition, 0),
			Rules:     make([]*ast.Rule, 0),
			Criteria:  make([]*ast.ModelCriterion, 0),
			Artifacts: make([]*ast.ArtifactDefinition, 0),
		},
		sections: make(map[string]ast.Location),
	}
}

// addDocument merges one parsed YAML document into the ruleset.
func (b *builder) addDocument(sourcePath string, root *yaml.Node) {
	b.sourcePath = sourcePath
	rs := b.ruleset
	rs.SourceFiles = append(rs.SourceFiles, sourcePath)
	if !rs.Location.IsValid() {
		rs.Location = ast.Location{File: sourcePath, Line: 1, Column: 1}
	}

	if root == nil {
		return
	}

	values, order := b.mapping(root, documentKeys, "ruleset document")
	for _, key := range order {
		node := values[key]
		if singletonSections[key] {
			if prev, seen := b.sections[key]; seen {
				b.errors.AddError(rulesErrors.ErrorTypeStructural,
					fmt.Sprintf("Section %q is already defined at %s", key, prev.String()),
					b.location(keyNode(root, key)))
				continue
			}
			b.sections[key] = b.location(keyNode(root, key))
		}

		switch key {
		case "version":
			rs.Version = b.str(node, "version")
		case "name":
			rs.Name = b.str(node, "name")
		case "description":
			rs.Description = b.str(node, "description")
		case "defaultTier":
			rs.DefaultTier = b.str(node, "defaultTier")
		case "tiers":
			b.buildTiers(node)
		case "evidence":
			b.buildEvidence(node)
		case "modelDefinition":
			b.buildCriteria(node)
		case "rules":
			b.buildRules(node)
		case "artifacts":
			b.buildArtifacts(node)
		}
	}
}

// result returns the built ruleset, or the accumulated errors.
func (b *builder) result() (*ast.Ruleset, error) {
	if b.errors.HasErrors() {
		return nil, b.errors
	}
	return b.ruleset, nil
}

// buildTiers reads the tier table, a mapping of tier id to definition.
func (b *builder) buildTiers(node *yaml.Node) {
	values, order := b.mapping(node, nil, "tiers")
	for _, id := range order {
		tierNode := values[id]
		fields, _ := b.mapping(tierNode, tierKeys, fmt.Sprintf("tier %q", id))
		if fields == nil {
			continue
		}

		tier := &ast.TierDefinition{
			ID:          id,
			Name:        b.str(fields["name"], "tier name"),
			Description: b.str(fields["description"], "tier description"),
			Location:    b.location(keyNode(deref(node), id)),
		}
		if sev, ok := b.integer(fields["severity"], "tier severity"); ok {
			tier.Severity = sev
		} else if fields["severity"] == nil {
			b.errors.Report(rulesErrors.ErrorTypeStructural, rulesErrors.Tier(id), tier.Location,
				"missing 'severity'",
				rulesErrors.SuggestMissingField("severity", "1"))
		}
		b.ruleset.Tiers = append(b.ruleset.Tiers, tier)
	}
}

// buildEvidence reads the evidence settings.
func (b *builder) buildEvidence(node *yaml.Node) {
	fields, _ := b.mapping(node, evidenceKeys, "evidence")
	if fields == nil {
		return
	}
	b.ruleset.Evidence.MatchAttachmentTypes = b.boolean(fields["matchAttachmentTypes"], "matchAttachmentTypes")
}

// buildCriteria reads the ordered model-definition criteria.
func (b *builder) buildCriteria(node *yaml.Node) {
	for i, item := range b.sequence(node, "modelDefinition") {
		fields, _ := b.mapping(item, criterionKeys, fmt.Sprintf("model definition criterion %d", i))
		if fields == nil {
			continue
		}

		criterion := &ast.ModelCriterion{
			ID:          b.str(fields["id"], "criterion id"),
			Description: b.str(fields["description"], "criterion description"),
			Result:      ast.Determination(b.str(fields["result"], "criterion result")),
			Location:    b.location(item),
		}
		if c := fields["conditions"]; c != nil {
			criterion.Conditions = b.buildCondition(c, 1)
		}
		b.ruleset.Criteria = append(b.ruleset.Criteria, criterion)
	}
}

// buildRules reads the ordered rule list.
func (b *builder) buildRules(node *yaml.Node) {
	for i, item := range b.sequence(node, "rules") {
		fields, _ := b.mapping(item, ruleKeys, fmt.Sprintf("rule %d", i))
		if fields == nil {
			continue
		}

		rule := &ast.Rule{
			ID:          b.str(fields["id"], "rule id"),
			Name:        b.str(fields["name"], "rule name"),
			Description: b.str(fields["description"], "rule description"),
			Tier:        b.str(fields["tier"], "rule tier"),
			Effects: ast.Effects{
				AddRequiredArtifacts: []string{},
				AddRiskFlags:         []string{},
			},
			Location: b.location(item),
		}
		if c := fields["conditions"]; c != nil {
			rule.Conditions = b.buildCondition(c, 1)
		}
		if e := fields["effects"]; e != nil {
			rule.Effects = b.buildEffects(e, rule.ID)
		}
		b.ruleset.Rules = append(b.ruleset.Rules, rule)
	}
}

// buildEffects reads a rule's effects block.
func (b *builder) buildEffects(node *yaml.Node, ruleID string) ast.Effects {
	effects := ast.Effects{
		AddRequiredArtifacts: []string{},
		AddRiskFlags:         []string{},
	}
	fields, _ := b.mapping(node, effectKeys, fmt.Sprintf("effects of rule %q", ruleID))
	if fields == nil {
		return effects
	}
	effects.AddRequiredArtifacts = b.stringList(fields["addRequiredArtifacts"], "addRequiredArtifacts")
	effects.AddRiskFlags = b.stringList(fields["addRiskFlags"], "addRiskFlags")
	effects.TriggeredCriteria = b.str(fields["triggeredCriteria"], "triggeredCriteria")
	return effects
}

// buildArtifacts reads the artifact table.
func (b *builder) buildArtifacts(node *yaml.Node) {
	for i, item := range b.sequence(node, "artifacts") {
		fields, _ := b.mapping(item, artifactKeys, fmt.Sprintf("artifact %d", i))
		if fields == nil {
			continue
		}

		b.ruleset.Artifacts = append(b.ruleset.Artifacts, &ast.ArtifactDefinition{
			ID:                      b.str(fields["id"], "artifact id"),
			Name:                    b.str(fields["name"], "artifact name"),
			Category:                b.str(fields["category"], "artifact category"),
			Description:             b.str(fields["description"], "artifact description"),
			OwnerRole:               b.str(fields["ownerRole"], "artifact ownerRole"),
			WhatGoodLooksLike:       b.str(fields["whatGoodLooksLike"], "artifact whatGoodLooksLike"),
			RequiredForTiers:        b.stringList(fields["requiredForTiers"], "requiredForTiers"),
			EvidenceAttachmentTypes: b.stringList(fields["evidenceAttachmentTypes"], "evidenceAttachmentTypes"),
			Location:                b.location(item),
		})
	}
}

// buildCondition transforms condition YAML into an ast.Condition.
// Conditions can be:
//   - a leaf mapping with field, operator and value
//   - a mapping with a single all/any key holding a list of children
//   - a list of conditions (implicit all)
func (b *builder) buildCondition(node *yaml.Node, depth int) *ast.Condition {
	node = deref(node)
	loc := b.location(node)

	if depth > b.maxDepth {
		b.errors.AddError(rulesErrors.ErrorTypeStructural,
			fmt.Sprintf("Condition nesting exceeds maximum depth %d", b.maxDepth),
			loc)
		return nil
	}

	switch node.Kind {
	case yaml.SequenceNode:
		return &ast.Condition{
			Kind:     ast.ConditionAll,
			Children: b.buildChildren(node, depth),
			Location: loc,
		}

	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			if key != "all" && key != "any" {
				continue
			}
			if len(node.Content) != 2 {
				b.errors.AddError(rulesErrors.ErrorTypeStructural,
					fmt.Sprintf("%q must be the only key of its condition", key),
					b.location(node.Content[i]))
				return nil
			}
			children := deref(node.Content[i+1])
			if children.Kind != yaml.SequenceNode {
				b.errors.AddError(rulesErrors.ErrorTypeStructural,
					fmt.Sprintf("%q must hold a list of conditions, got %s", key, kindName(children)),
					b.location(children))
				return nil
			}
			return &ast.Condition{
				Kind:     ast.ConditionKind(key),
				Children: b.buildChildren(children, depth),
				Location: loc,
			}
		}
		return b.buildLeaf(node)

	default:
		b.errors.AddError(rulesErrors.ErrorTypeStructural,
			fmt.Sprintf("Condition must be a mapping or a list, got %s", kindName(node)),
			loc)
		return nil
	}
}

func (b *builder) buildChildren(node *yaml.Node, depth int) []*ast.Condition {
	children := make([]*ast.Condition, 0, len(node.Content))
	for _, item := range node.Content {
		if child := b.buildCondition(item, depth+1); child != nil {
			children = append(children, child)
		}
	}
	return children
}

// buildLeaf builds a field/operator/value comparison. Missing field or
// operator is left for the validator to report.
func (b *builder) buildLeaf(node *yaml.Node) *ast.Condition {
	fields, _ := b.mapping(node, conditionKeys, "condition")
	cond := &ast.Condition{
		Kind:     ast.ConditionLeaf,
		Field:    b.str(fields["field"], "condition field"),
		Operator: ast.Operator(b.str(fields["operator"], "condition operator")),
		Location: b.location(node),
	}
	if v, ok := fields["value"]; ok {
		cond.Value = b.buildValue(v)
	}
	return cond
}

// buildValue converts a scalar or list of scalars into an ast.Value.
func (b *builder) buildValue(node *yaml.Node) *ast.Value {
	node = deref(node)
	loc := b.location(node)

	switch node.Kind {
	case yaml.ScalarNode:
		raw, err := scalarValue(node)
		if err != nil {
			b.errors.AddError(rulesErrors.ErrorTypeStructural,
				fmt.Sprintf("Invalid value %q: %v", node.Value, err), loc)
			return nil
		}
		v := ast.NewValue(raw)
		v.Location = loc
		return v

	case yaml.SequenceNode:
		items := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			item = deref(item)
			if item.Kind != yaml.ScalarNode {
				b.errors.AddError(rulesErrors.ErrorTypeStructural,
					fmt.Sprintf("List values must be scalars, got %s", kindName(item)),
					b.location(item))
				continue
			}
			raw, err := scalarValue(item)
			if err != nil {
				b.errors.AddError(rulesErrors.ErrorTypeStructural,
					fmt.Sprintf("Invalid value %q: %v", item.Value, err), b.location(item))
				continue
			}
			items = append(items, raw)
		}
		v := ast.NewValue(items)
		v.Location = loc
		return v

	default:
		b.errors.AddError(rulesErrors.ErrorTypeStructural,
			fmt.Sprintf("Condition value must be a scalar or a list, got %s", kindName(node)),
			loc)
		return nil
	}
}

// sequence returns the items of a list node, reporting other shapes.
func (b *builder) sequence(node *yaml.Node, what string) []*yaml.Node {
	node = deref(node)
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.SequenceNode {
		b.errors.AddError(rulesErrors.ErrorTypeStructural,
			fmt.Sprintf("%s must be a list, got %s", what, kindName(node)),
			b.location(node))
		return nil
	}
	return node.Content
}
