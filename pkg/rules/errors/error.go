package errors

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"keystone-mrm/arbiter/pkg/rules/ast"
)

// ErrorType categorizes ruleset loading and validation errors.
type ErrorType string

const (
	ErrorTypeSyntax     ErrorType = "syntax"     // YAML syntax error
	ErrorTypeStructural ErrorType = "structural" // Schema violation (unknown/missing keys, wrong shapes)
	ErrorTypeSemantic   ErrorType = "semantic"   // Undefined reference, duplicate id, type mismatch
	ErrorTypeIO         ErrorType = "io"         // File I/O error
)

// ElementKind names a section of a ruleset.
type ElementKind string

const (
	ElementRuleset   ElementKind = "ruleset"
	ElementTier      ElementKind = "tier"
	ElementRule      ElementKind = "rule"
	ElementCriterion ElementKind = "criterion"
	ElementArtifact  ElementKind = "artifact"
)

// Element identifies the tier, rule, model definition criterion or artifact
// an error is about. The zero value stands for the ruleset as a whole.
type Element struct {
	Kind  ElementKind
	ID    string
	Index int // position within its section; shown when ID is empty
}

// Tier, Rule, Criterion and Artifact build elements for ruleset entries.
func Tier(id string) Element { return Element{Kind: ElementTier, ID: id} }

func Rule(id string, index int) Element { return Element{Kind: ElementRule, ID: id, Index: index} }

func Criterion(id string, index int) Element {
	return Element{Kind: ElementCriterion, ID: id, Index: index}
}

func Artifact(id string, index int) Element {
	return Element{Kind: ElementArtifact, ID: id, Index: index}
}

func (e Element) String() string {
	switch {
	case e.Kind == "" || e.Kind == ElementRuleset:
		return string(ElementRuleset)
	case e.ID != "":
		return fmt.Sprintf("%s %q", e.Kind, e.ID)
	default:
		return fmt.Sprintf("%s #%d", e.Kind, e.Index+1)
	}
}

// Error is a ruleset error with location, source context and an optional fix.
type Error struct {
	Type       ErrorType
	Element    Element      // Ruleset entry the error belongs to
	Message    string       // Describes the problem, without naming Element
	Location   ast.Location // Source location (file, line, column)
	Context    string       // Surrounding source lines
	Suggestion string       // Suggested fix (optional)
}

// Summary is the one-line form: "<element>: <message>".
func (e *Error) Summary() string {
	return e.Element.String() + ": " + e.Message
}

// Error renders the error the way lint prints it:
//
//	semantic error in rule "auto": references undefined tier "T9"
//	  at rules.yaml:12:5
//	-> 12 |     tier: T9
//	  hint: Did you mean 'T2'?
func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s error in %s\n", e.Type, e.Summary())

	if e.Location.Line > 0 || e.Location.File != "" {
		fmt.Fprintf(&sb, "  at %s\n", e.Location.String())
	}
	sb.WriteString(e.Context)
	if e.Suggestion != "" {
		fmt.Fprintf(&sb, "  hint: %s\n", e.Suggestion)
	}
	return sb.String()
}

// ErrorList accumulates errors so a ruleset author sees every problem at once.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList creates a new empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*Error, 0),
	}
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *Error) {
	el.Errors = append(el.Errors, err)
}

// Report records a problem with one ruleset entry.
func (el *ErrorList) Report(errType ErrorType, elem Element, location ast.Location, message, suggestion string) {
	el.Add(&Error{
		Type:       errType,
		Element:    elem,
		Message:    message,
		Location:   location,
		Suggestion: suggestion,
	})
}

// AddError records a ruleset-level error, typically a parse problem that is
// not tied to one entry.
func (el *ErrorList) AddError(errType ErrorType, message string, location ast.Location) {
	el.Report(errType, Element{}, location, message, "")
}

// AddErrorWithSuggestion is AddError with a suggested fix.
func (el *ErrorList) AddErrorWithSuggestion(errType ErrorType, message string, location ast.Location, suggestion string) {
	el.Report(errType, Element{}, location, message, suggestion)
}

// Merge appends the errors carried by err. *Error and *ErrorList are unpacked;
// any other error is recorded with the given fallback type.
func (el *ErrorList) Merge(err error, fallback ErrorType) {
	switch e := err.(type) {
	case nil:
	case *ErrorList:
		el.Errors = append(el.Errors, e.Errors...)
	case *Error:
		el.Add(e)
	default:
		el.Add(&Error{Type: fallback, Message: err.Error()})
	}
}

// Sort orders errors by file, line and column. Errors without a location
// keep their relative order at the end.
func (el *ErrorList) Sort() {
	slices.SortStableFunc(el.Errors, func(a, b *Error) int {
		aNone, bNone := a.Location.Line == 0, b.Location.Line == 0
		switch {
		case aNone && bNone:
			return 0
		case aNone:
			return 1
		case bNone:
			return -1
		}
		return cmp.Or(
			strings.Compare(a.Location.File, b.Location.File),
			cmp.Compare(a.Location.Line, b.Location.Line),
			cmp.Compare(a.Location.Column, b.Location.Column),
		)
	})
}

// HasErrors returns true if the list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of errors in the list.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// Error lists every error under a header counting them per type, e.g.
// "ruleset has 3 error(s): 2 structural, 1 semantic".
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "ruleset has %d error(s): %s\n", el.Count(), el.typeCounts())
	for _, err := range el.Errors {
		sb.WriteString("\n")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

func (el *ErrorList) typeCounts() string {
	var order []ErrorType
	counts := make(map[ErrorType]int)
	for _, err := range el.Errors {
		if counts[err.Type] == 0 {
			order = append(order, err.Type)
		}
		counts[err.Type]++
	}
	parts := make([]string, len(order))
	for i, t := range order {
		parts[i] = fmt.Sprintf("%d %s", counts[t], t)
	}
	return strings.Join(parts, ", ")
}

// ToError returns nil for an empty list, otherwise the list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// ByType returns all errors of the given type.
func (el *ErrorList) ByType(errType ErrorType) []*Error {
	var result []*Error
	for _, err := range el.Errors {
		if err.Type == errType {
			result = append(result, err)
		}
	}
	return result
}

// ByElement returns the errors reported against entries of the given kind.
func (el *ErrorList) ByElement(kind ElementKind) []*Error {
	var result []*Error
	for _, err := range el.Errors {
		if err.Element.Kind == kind {
			result = append(result, err)
		}
	}
	return result
}

// HasErrorType returns true if the list has at least one error of the given type.
func (el *ErrorList) HasErrorType(errType ErrorType) bool {
	return len(el.ByType(errType)) > 0
}
