package engine

import (
	"fmt"
	"strings"

	"keystone-mrm/arbiter/pkg/rules/ast"
)

var modelSentences = map[ast.Determination]string{
	ast.DeterminationYes:       "This use case qualifies as a model under the model definition.",
	ast.DeterminationModelLike: "This use case exhibits model-like characteristics and warrants proportionate oversight.",
	ast.DeterminationNo:        "This use case does not meet the model definition.",
}

// GenerateRationale assembles the templated, human-readable summary of a
// decision. The text depends only on its arguments. rs supplies tier names
// and descriptions and may be nil.
func GenerateRationale(tier string, isModel ast.Determination, triggered []*ast.Rule, riskFlags []string, rs *ast.Ruleset) string {
	var lines []string

	if s, ok := modelSentences[isModel]; ok {
		lines = append(lines, s)
	} else {
		lines = append(lines, modelSentences[ast.DeterminationNo])
	}

	lines = append(lines, tierLine(tier, rs))

	if len(triggered) == 0 {
		lines = append(lines, "No risk rules were triggered; the default tier applies.")
	} else {
		lines = append(lines, "Triggered criteria:")
		for _, rule := range triggered {
			text := strings.TrimSpace(rule.Effects.TriggeredCriteria)
			if text == "" {
				text = rule.Name
			}
			if text == "" {
				text = rule.ID
			}
			lines = append(lines, "- "+text)
		}
	}

	if len(riskFlags) > 0 {
		lines = append(lines, "Risk flags: "+strings.Join(riskFlags, ", ")+".")
	}

	return strings.Join(lines, "\n")
}

func tierLine(tier string, rs *ast.Ruleset) string {
	var def *ast.TierDefinition
	if rs != nil {
		def, _ = rs.Tier(tier)
	}
	if def == nil {
		return fmt.Sprintf("Risk tier: %s.", tier)
	}

	line := "Risk tier: " + tier
	if def.Name != "" {
		line += " (" + def.Name + ")"
	}
	if desc := strings.TrimSpace(def.Description); desc != "" {
		line += " - " + strings.TrimSuffix(desc, ".")
	}
	return line + "."
}
