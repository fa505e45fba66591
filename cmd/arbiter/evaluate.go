package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"keystone-mrm/arbiter/pkg/cli"
	"keystone-mrm/arbiter/pkg/config"
	"keystone-mrm/arbiter/pkg/rules/engine"
	"keystone-mrm/arbiter/pkg/usecase"
)

var evaluateFlags struct {
	set         []string
	attachments []string
	useCaseID   string
	explain     bool
	persist     bool
	output      string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [file]",
	Short: "Evaluate a use case against the ruleset",
	Long: `Evaluate one use case and print its tier, model determination, triggered
rules, required artifacts and missing evidence.

The use case is read from a YAML or JSON file ("-" reads stdin):

  useCaseId: uc-42
  attributes:
    usageType: Decisioning
    containsPii: true
    regulatoryDomains: [Fair Lending]
  attachments:
    - type: Model card

A typed "record" object may be given instead of "attributes". Attributes can
also be set, or overridden, with --set.

Examples:
  # Evaluate a file
  arbiter evaluate usecase.yaml

  # Evaluate from flags only
  arbiter evaluate --set usageType=Decisioning --set containsPii=true \
    --attachment "Model card"

  # Show which rules and model criteria matched
  arbiter evaluate usecase.yaml --explain

  # Record the decision in the configured decision store
  arbiter evaluate usecase.yaml --persist --output json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringArrayVar(&evaluateFlags.set, "set", nil, "set an attribute (key=value, repeatable)")
	evaluateCmd.Flags().StringArrayVar(&evaluateFlags.attachments, "attachment", nil, "add an attachment by type (repeatable)")
	evaluateCmd.Flags().StringVar(&evaluateFlags.useCaseID, "use-case-id", "", "use case identifier (overrides the file)")
	evaluateCmd.Flags().BoolVar(&evaluateFlags.explain, "explain", false, "print the per-rule and per-criterion trace")
	evaluateCmd.Flags().BoolVar(&evaluateFlags.persist, "persist", false, "record the decision in the configured store")
	evaluateCmd.Flags().StringVarP(&evaluateFlags.output, "output", "o", "text", "output format: text, json")
}

// useCaseInput is the evaluate file format.
type useCaseInput struct {
	UseCaseID   string               `yaml:"useCaseId"`
	Record      *usecase.Record      `yaml:"record"`
	Attributes  map[string]any       `yaml:"attributes"`
	Attachments []usecase.Attachment `yaml:"attachments"`
}

// readUseCaseInput decodes the evaluate file. YAML decoding covers JSON.
func readUseCaseInput(r io.Reader) (*useCaseInput, error) {
	in := &useCaseInput{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(in); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid use case file: %w", err)
	}
	return in, nil
}

// applyFlags merges --set, --attachment and --use-case-id into the input.
func (in *useCaseInput) applyFlags(set, attachments []string, useCaseID string) error {
	if len(set) > 0 {
		if in.Record != nil {
			return errors.New("--set cannot be combined with a typed record")
		}
		if in.Attributes == nil {
			in.Attributes = make(map[string]any, len(set))
		}
		for _, kv := range set {
			key, value, ok := strings.Cut(kv, "=")
			key = strings.TrimSpace(key)
			if !ok || key == "" {
				return fmt.Errorf("invalid --set %q: expected key=value", kv)
			}
			in.Attributes[key] = value
		}
	}
	for _, t := range attachments {
		in.Attachments = append(in.Attachments, usecase.Attachment{Type: t})
	}
	if useCaseID != "" {
		in.UseCaseID = useCaseID
	}
	return nil
}

// useCase builds the record to evaluate.
func (in *useCaseInput) useCase() (*usecase.Record, error) {
	if in.Record != nil && in.Attributes != nil {
		return nil, errors.New("record and attributes are mutually exclusive")
	}
	if in.Record != nil {
		rec := usecase.New(*in.Record, in.Attachments)
		return &rec, nil
	}
	rec, err := usecase.FromAttributes(in.Attributes, in.Attachments)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(evaluateFlags.output)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return fmt.Errorf("evaluate supports text and json output")
	}

	in := &useCaseInput{}
	if len(args) == 1 {
		if in, err = openUseCaseInput(cmd, args[0]); err != nil {
			return err
		}
	}
	if err := in.applyFlags(evaluateFlags.set, evaluateFlags.attachments, evaluateFlags.useCaseID); err != nil {
		return err
	}
	rec, err := in.useCase()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := quietLogger(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cache, err := loadRulesetCache(ctx, &cfg.Rules, logger)
	if err != nil {
		return fmt.Errorf("failed to load ruleset: %w", err)
	}
	eng := engine.NewEngine(cache, logger)
	out := cmd.OutOrStdout()

	if evaluateFlags.explain {
		exp, err := eng.Explain(ctx, rec)
		if err != nil {
			return err
		}
		if format == cli.FormatJSON {
			return cli.NewFormatter(format).FormatTo(out, exp)
		}
		writeExplanation(out, exp)
		return nil
	}

	ev, err := eng.Evaluate(ctx, rec)
	if err != nil {
		return err
	}

	view := &evaluationView{Evaluation: ev}
	if evaluateFlags.persist {
		id, err := persistEvaluation(ctx, cfg, ev, in.UseCaseID, rec)
		if err != nil {
			return err
		}
		view.DecisionID = id
	}

	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(out, view)
	}
	writeEvaluation(out, view)
	return nil
}

func openUseCaseInput(cmd *cobra.Command, path string) (*useCaseInput, error) {
	if path == "-" {
		return readUseCaseInput(cmd.InOrStdin())
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readUseCaseInput(f)
}

// persistEvaluation records ev synchronously and returns the decision ID.
func persistEvaluation(ctx context.Context, cfg *config.Config, ev *engine.Evaluation, useCaseID string, rec *usecase.Record) (string, error) {
	if !cfg.Decisions.Enabled {
		return "", errors.New("--persist requires decisions.enabled")
	}
	store, err := openStorage(&cfg.Decisions)
	if err != nil {
		return "", err
	}
	defer store.Close()

	r := newRecorder(store, &cfg.Decisions.Recorder)
	defer r.Close()

	record, err := r.Record(ctx, ev, useCaseID, rec)
	if err != nil {
		return "", err
	}
	return record.ID, nil
}

// evaluationView is the evaluate command's JSON output.
type evaluationView struct {
	*engine.Evaluation
	DecisionID string `json:"decisionId,omitempty"`
}

func writeEvaluation(w io.Writer, v *evaluationView) {
	res := v.Result
	fmt.Fprintf(w, "Tier:      %s\n", res.Tier)
	fmt.Fprintf(w, "Is model:  %s\n", res.IsModel)
	fmt.Fprintf(w, "Ruleset:   %s %s (%s)\n", v.RulesetName, v.RulesetVersion, v.RulesetHash)
	if v.DecisionID != "" {
		fmt.Fprintf(w, "Decision:  %s\n", v.DecisionID)
	}

	fmt.Fprintln(w, "\nTriggered rules:")
	if len(res.TriggeredRules) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, tr := range res.TriggeredRules {
		fmt.Fprintf(w, "  %s  %s [%s]\n", tr.ID, tr.Name, tr.Tier)
	}

	writeList(w, "Required artifacts", res.RequiredArtifacts)
	writeList(w, "Missing evidence", res.MissingEvidence)
	writeList(w, "Risk flags", res.RiskFlags)

	fmt.Fprintln(w, "\nRationale:")
	for _, line := range strings.Split(res.RationaleSummary, "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
}

func writeExplanation(w io.Writer, exp *engine.Explanation) {
	fmt.Fprintln(w, "Rules:")
	for _, r := range exp.Rules {
		mark := " "
		if r.Matched {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %s  %s [%s]", mark, r.ID, r.Name, r.Tier)
		if len(r.Fields) > 0 {
			fmt.Fprintf(w, " reads %s", strings.Join(r.Fields, ", "))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "\nModel criteria:")
	for _, c := range exp.Criteria {
		mark := " "
		if c.Matched {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %s -> %s\n", mark, c.ID, c.Result)
	}

	if exp.Result != nil {
		fmt.Fprintf(w, "\nTier: %s, is model: %s\n", exp.Result.Tier, exp.Result.IsModel)
	}
}

func writeList(w io.Writer, title string, items []string) {
	fmt.Fprintf(w, "\n%s:\n", title)
	if len(items) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}
