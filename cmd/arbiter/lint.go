package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"keystone-mrm/arbiter/pkg/cli"
	rulesErrors "keystone-mrm/arbiter/pkg/rules/errors"
	"keystone-mrm/arbiter/pkg/rules/parser"
	"keystone-mrm/arbiter/pkg/rules/source"
	"keystone-mrm/arbiter/pkg/rules/validator"
)

var lintFlags struct {
	strict bool
	output string
}

var lintCmd = &cobra.Command{
	Use:   "lint [path...]",
	Short: "Validate ruleset files",
	Long: `Validate ruleset files for syntax, structure and semantic errors.

Each path is a ruleset file or a directory whose .yaml/.yml files are merged
into one ruleset. Without arguments the configured rules path is linted.

Checks include:
  - YAML syntax and unknown keys
  - tier, rule, criterion and artifact structure
  - undefined tier and artifact references, duplicate ids
  - condition fields, operators and operand types

Examples:
  # Lint the configured ruleset
  arbiter lint

  # Lint a directory in strict mode
  arbiter lint rulesets/ --strict

  # JSON output for CI
  arbiter lint rulesets/default.yaml --output json`,
	RunE: lintRulesets,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().BoolVar(&lintFlags.strict, "strict", false, "reject stylistic problems such as empty combinators")
	lintCmd.Flags().StringVarP(&lintFlags.output, "output", "o", "text", "output format: text, json, csv")
}

// LintResult is the outcome of linting one path.
type LintResult struct {
	Path    string      `json:"path"`
	Files   []string    `json:"files,omitempty"`
	Valid   bool        `json:"valid"`
	Name    string      `json:"name,omitempty"`
	Version string      `json:"version,omitempty"`
	Hash    string      `json:"hash,omitempty"`
	Rules   int         `json:"rules"`
	Errors  []LintIssue `json:"errors,omitempty"`
}

// LintIssue is one ruleset error.
type LintIssue struct {
	Type       string `json:"type"`
	Element    string `json:"element,omitempty"`
	Message    string `json:"message"`
	File       string `json:"file,omitempty"`
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// LintReport is the result of a lint run.
type LintReport []LintResult

// Table lists one row per issue.
func (r LintReport) Table() cli.Table {
	t := cli.Table{Headers: []string{"PATH", "TYPE", "FILE", "LINE", "COLUMN", "ELEMENT", "MESSAGE"}}
	for _, res := range r {
		for _, issue := range res.Errors {
			t.Rows = append(t.Rows, []string{
				res.Path, issue.Type, issue.File,
				strconv.Itoa(issue.Line), strconv.Itoa(issue.Column), issue.Element, issue.Message,
			})
		}
	}
	return t
}

// Valid reports whether every path linted clean.
func (r LintReport) Valid() bool {
	for _, res := range r {
		if !res.Valid {
			return false
		}
	}
	return true
}

func lintRulesets(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(lintFlags.output)
	if err != nil {
		return err
	}

	paths := args
	strict := lintFlags.strict
	if len(paths) == 0 {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		paths = []string{cfg.Rules.Path}
		if !cmd.Flags().Changed("strict") {
			strict = cfg.Rules.Strict
		}
	}

	report := make(LintReport, 0, len(paths))
	for _, path := range paths {
		report = append(report, lintPath(path, strict))
	}

	out := cmd.OutOrStdout()
	if format == cli.FormatText {
		writeLintText(out, report)
	} else if err := cli.NewFormatter(format).FormatTo(out, report); err != nil {
		return err
	}

	if !report.Valid() {
		return &cli.ExitError{Code: 1}
	}
	return nil
}

// lintPath parses and validates the ruleset at path.
func lintPath(path string, strict bool) LintResult {
	result := LintResult{Path: path}

	files, err := source.NewFileSource(path, nil).Files()
	if err != nil {
		result.Errors = []LintIssue{{Type: string(rulesErrors.ErrorTypeIO), Message: err.Error(), File: path}}
		return result
	}
	result.Files = files

	rs, err := parser.NewParser().ParseFiles(files...)
	if err != nil {
		result.Errors = lintIssues(err)
		return result
	}

	if err := validator.NewValidator().WithStrictMode(strict).Validate(rs); err != nil {
		result.Errors = lintIssues(err)
		return result
	}

	result.Valid = true
	result.Name = rs.Name
	result.Version = rs.Version
	result.Hash = rs.Hash
	result.Rules = len(rs.Rules)
	return result
}

func lintIssues(err error) []LintIssue {
	var list *rulesErrors.ErrorList
	if errors.As(err, &list) {
		issues := make([]LintIssue, 0, len(list.Errors))
		for _, e := range list.Errors {
			issues = append(issues, lintIssue(e))
		}
		return issues
	}
	var single *rulesErrors.Error
	if errors.As(err, &single) {
		return []LintIssue{lintIssue(single)}
	}
	return []LintIssue{{Type: string(rulesErrors.ErrorTypeIO), Message: err.Error()}}
}

func lintIssue(e *rulesErrors.Error) LintIssue {
	return LintIssue{
		Type:       string(e.Type),
		Element:    e.Element.String(),
		Message:    e.Message,
		File:       e.Location.File,
		Line:       e.Location.Line,
		Column:     e.Location.Column,
		Suggestion: e.Suggestion,
	}
}

func writeLintText(w io.Writer, report LintReport) {
	total := 0
	for _, res := range report {
		fmt.Fprintf(w, "Validating %s...\n", res.Path)
		if res.Valid {
			fmt.Fprintf(w, "ok: %s %s (%d rules, %s)\n", res.Name, res.Version, res.Rules, res.Hash)
			continue
		}
		for _, issue := range res.Errors {
			total++
			if issue.Element != "" {
				fmt.Fprintf(w, "error: %s: %s", issue.Element, issue.Message)
			} else {
				fmt.Fprintf(w, "error: %s", issue.Message)
			}
			if issue.Line > 0 {
				fmt.Fprintf(w, " (%s:%d:%d)", issue.File, issue.Line, issue.Column)
			}
			fmt.Fprintf(w, " [%s]\n", issue.Type)
			if issue.Suggestion != "" {
				fmt.Fprintf(w, "  suggestion: %s\n", issue.Suggestion)
			}
		}
	}

	fmt.Fprintln(w)
	if total == 0 {
		fmt.Fprintf(w, "%d ruleset(s) valid\n", len(report))
		return
	}
	fmt.Fprintf(w, "%d error(s) found\n", total)
}
