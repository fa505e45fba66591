package engine

import (
	"keystone-mrm/arbiter/pkg/rules/ast"
	"keystone-mrm/arbiter/pkg/usecase"
)

// DetermineIsModel runs the model-definition criteria in order. The first
// matching Yes criterion decides immediately; a matching Model-like result is
// remembered while scanning continues, since a later Yes still wins. With no
// Yes or Model-like match the result is No.
func DetermineIsModel(record *usecase.Record, criteria []*ast.ModelCriterion) ast.Determination {
	result := ast.DeterminationNo

	for _, criterion := range criteria {
		if !EvaluateCondition(criterion.Conditions, record) {
			continue
		}
		switch criterion.Result {
		case ast.DeterminationYes:
			return ast.DeterminationYes
		case ast.DeterminationModelLike:
			result = ast.DeterminationModelLike
		}
	}

	return result
}
