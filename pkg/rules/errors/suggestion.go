package errors

import (
	"fmt"
	"strings"
)

// SuggestFieldName suggests the closest known name for an unknown one using
// Levenshtein distance. It is used for record fields and YAML keys alike.
func SuggestFieldName(unknown string, validFields []string) string {
	if len(validFields) == 0 {
		return ""
	}

	best, dist := closest(unknown, validFields)
	if dist < 5 && dist < len(unknown) {
		return fmt.Sprintf("Did you mean '%s'?", best)
	}

	if len(validFields) > 5 {
		return fmt.Sprintf("Valid fields include: %s, ...", strings.Join(validFields[:5], ", "))
	}
	return fmt.Sprintf("Valid fields: %s", strings.Join(validFields, ", "))
}

// SuggestOperator suggests valid operators for a record field type.
func SuggestOperator(fieldType string) string {
	switch fieldType {
	case "string":
		return "Valid operators: eq, neq, in, notIn, contains, notEmpty"
	case "number":
		return "Valid operators: eq, neq, in, notIn, gt, lt, gte, lte, notEmpty"
	case "boolean":
		return "Valid operators: eq, neq, notEmpty"
	case "list":
		return "Valid operators: contains, notEmpty, eq, neq"
	default:
		return "Valid operators: eq, neq, in, notIn, contains, notEmpty, gt, lt, gte, lte"
	}
}

// SuggestReference suggests a defined id when a rule refers to an unknown
// tier, artifact or criterion.
func SuggestReference(kind, unknown string, defined []string) string {
	if len(defined) == 0 {
		return fmt.Sprintf("No %ss are defined", kind)
	}

	best, dist := closest(unknown, defined)
	if dist < 4 && dist < len(unknown) {
		return fmt.Sprintf("Did you mean '%s'?", best)
	}
	return fmt.Sprintf("Defined %ss: %s", kind, strings.Join(defined, ", "))
}

// SuggestMissingField suggests adding a required key.
func SuggestMissingField(fieldName string, exampleValue string) string {
	if exampleValue != "" {
		return fmt.Sprintf("Add '%s: %s'", fieldName, exampleValue)
	}
	return fmt.Sprintf("Add '%s'", fieldName)
}

func closest(unknown string, candidates []string) (string, int) {
	minDistance := 1 << 30
	var bestMatch string
	for _, c := range candidates {
		if d := levenshteinDistance(unknown, c); d < minDistance {
			minDistance = d
			bestMatch = c
		}
	}
	return bestMatch, minDistance
}

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}

	len1 := len(s1)
	len2 := len(s2)

	matrix := make([][]int, len1+1)
	for i := range matrix {
		matrix[i] = make([]int, len2+1)
	}

	for i := 0; i <= len1; i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len2; j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len1; i++ {
		for j := 1; j <= len2; j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}

			matrix[i][j] = min(
				matrix[i-1][j]+1,      // Deletion
				matrix[i][j-1]+1,      // Insertion
				matrix[i-1][j-1]+cost, // Substitution
			)
		}
	}

	return matrix[len1][len2]
}
