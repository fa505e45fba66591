package parser

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"keystone-mrm/arbiter/pkg/rules/ast"
	rulesErrors "keystone-mrm/arbiter/pkg/rules/errors"
)

// Keys accepted in each mapping of a ruleset document.
var (
	documentKeys  = []string{"version", "name", "description", "defaultTier", "tiers", "evidence", "modelDefinition", "rules", "artifacts"}
	tierKeys      = []string{"name", "description", "severity"}
	evidenceKeys  = []string{"matchAttachmentTypes"}
	criterionKeys = []string{"id", "description", "conditions", "result"}
	ruleKeys      = []string{"id", "name", "description", "tier", "conditions", "effects"}
	effectKeys    = []string{"addRequiredArtifacts", "addRiskFlags", "triggeredCriteria"}
	artifactKeys  = []string{"id", "name", "category", "description", "ownerRole", "whatGoodLooksLike", "requiredForTiers", "evidenceAttachmentTypes"}
	conditionKeys = []string{"field", "operator", "value", "all", "any"}
)

// decodeDocument parses YAML bytes into a document node.
func decodeDocument(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		// Empty input
		return nil, nil
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0], nil
	}
	return &doc, nil
}

// location converts a YAML node position into an ast.Location.
func (b *builder) location(node *yaml.Node) ast.Location {
	if node == nil {
		return ast.Location{File: b.sourcePath}
	}
	return ast.Location{File: b.sourcePath, Line: node.Line, Column: node.Column}
}

// mapping returns the key/value pairs of a mapping node keyed by name, and
// reports unknown and duplicated keys. what names the mapping in messages.
func (b *builder) mapping(node *yaml.Node, allowed []string, what string) (map[string]*yaml.Node, []string) {
	node = deref(node)
	if node.Kind != yaml.MappingNode {
		b.errors.AddError(rulesErrors.ErrorTypeStructural,
			fmt.Sprintf("%s must be a mapping, got %s", what, kindName(node)),
			b.location(node))
		return nil, nil
	}

	values := make(map[string]*yaml.Node, len(node.Content)/2)
	order := make([]string, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]
		key := keyNode.Value

		if allowed != nil && !contains(allowed, key) {
			b.errors.AddErrorWithSuggestion(rulesErrors.ErrorTypeStructural,
				fmt.Sprintf("Unknown key %q in %s", key, what),
				b.location(keyNode),
				rulesErrors.SuggestFieldName(key, allowed))
			continue
		}
		if _, dup := values[key]; dup {
			b.errors.AddError(rulesErrors.ErrorTypeStructural,
				fmt.Sprintf("Duplicate key %q in %s", key, what),
				b.location(keyNode))
			continue
		}
		values[key] = valueNode
		order = append(order, key)
	}
	return values, order
}

// keyNode returns the key node for key in a mapping, for error locations.
func keyNode(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return node
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i]
		}
	}
	return node
}

// str decodes a scalar string. Missing nodes yield "".
func (b *builder) str(node *yaml.Node, what string) string {
	if node == nil {
		return ""
	}
	node = deref(node)
	if node.Kind != yaml.ScalarNode {
		b.errors.AddError(rulesErrors.ErrorTypeStructural,
			fmt.Sprintf("%s must be a string, got %s", what, kindName(node)),
			b.location(node))
		return ""
	}
	return node.Value
}

// integer decodes a scalar integer.
func (b *builder) integer(node *yaml.Node, what string) (int, bool) {
	if node == nil {
		return 0, false
	}
	node = deref(node)
	var n int
	if node.Kind != yaml.ScalarNode || node.Decode(&n) != nil {
		b.errors.AddError(rulesErrors.ErrorTypeStructural,
			fmt.Sprintf("%s must be an integer, got %q", what, node.Value),
			b.location(node))
		return 0, false
	}
	return n, true
}

// boolean decodes a scalar boolean.
func (b *builder) boolean(node *yaml.Node, what string) bool {
	if node == nil {
		return false
	}
	node = deref(node)
	var v bool
	if node.Kind != yaml.ScalarNode || node.Decode(&v) != nil {
		b.errors.AddError(rulesErrors.ErrorTypeStructural,
			fmt.Sprintf("%s must be true or false, got %q", what, node.Value),
			b.location(node))
		return false
	}
	return v
}

// strings decodes a sequence of scalar strings. A single scalar is accepted
// as a one-element list.
func (b *builder) stringList(node *yaml.Node, what string) []string {
	if node == nil {
		return []string{}
	}
	node = deref(node)
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return []string{}
		}
		return []string{node.Value}
	case yaml.SequenceNode:
		out := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			item = deref(item)
			if item.Kind != yaml.ScalarNode {
				b.errors.AddError(rulesErrors.ErrorTypeStructural,
					fmt.Sprintf("%s entries must be strings, got %s", what, kindName(item)),
					b.location(item))
				continue
			}
			out = append(out, item.Value)
		}
		return out
	default:
		b.errors.AddError(rulesErrors.ErrorTypeStructural,
			fmt.Sprintf("%s must be a list of strings, got %s", what, kindName(node)),
			b.location(node))
		return []string{}
	}
}

// scalarValue converts a scalar node into its Go literal by YAML tag.
func scalarValue(node *yaml.Node) (any, error) {
	switch node.Tag {
	case "!!null":
		return nil, nil
	case "!!bool":
		var v bool
		err := node.Decode(&v)
		return v, err
	case "!!int", "!!float":
		var v float64
		err := node.Decode(&v)
		return v, err
	default:
		return node.Value, nil
	}
}

// deref follows YAML aliases so anchored fragments can be reused.
func deref(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func kindName(node *yaml.Node) string {
	switch node.Kind {
	case yaml.MappingNode:
		return "a mapping"
	case yaml.SequenceNode:
		return "a list"
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return "null"
		}
		return "a scalar"
	case yaml.AliasNode:
		return "an alias"
	default:
		return "a document"
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
