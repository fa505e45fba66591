package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"keystone-mrm/arbiter/pkg/cli"
	"keystone-mrm/arbiter/pkg/config"
	"keystone-mrm/arbiter/pkg/decision"
	"keystone-mrm/arbiter/pkg/decision/export"
	"keystone-mrm/arbiter/pkg/decision/retention"
	"keystone-mrm/arbiter/pkg/server"
)

// queryFlags are the decision filters shared by query and export.
type queryFlags struct {
	since              string
	until              string
	ids                []string
	useCaseID          string
	tier               string
	isModel            string
	ruleID             string
	rulesetHash        string
	hasMissingEvidence string
	limit              int
	offset             int
	sortBy             string
	sortOrder          string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.since, "since", "", "records evaluated at or after (RFC 3339 or a duration such as 24h)")
	fs.StringVar(&f.until, "until", "", "records evaluated at or before (RFC 3339 or a duration such as 1h)")
	fs.StringSliceVar(&f.ids, "id", nil, "decision IDs (repeatable)")
	fs.StringVar(&f.useCaseID, "use-case-id", "", "filter by use case ID")
	fs.StringVar(&f.tier, "tier", "", "filter by tier")
	fs.StringVar(&f.isModel, "is-model", "", "filter by model determination (Yes, No, Model-like)")
	fs.StringVar(&f.ruleID, "rule-id", "", "filter by triggered rule ID")
	fs.StringVar(&f.rulesetHash, "ruleset-hash", "", "filter by ruleset hash")
	fs.StringVar(&f.hasMissingEvidence, "missing-evidence", "", "filter by missing evidence (true, false)")
	fs.IntVar(&f.limit, "limit", 0, "maximum records (default 100)")
	fs.IntVar(&f.offset, "offset", 0, "records to skip")
	fs.StringVar(&f.sortBy, "sort-by", "", "sort field: evaluated_at, recorded_at, tier")
	fs.StringVar(&f.sortOrder, "sort-order", "", "sort order: asc, desc")
}

// query builds a validated decision query. Relative times are resolved
// against now.
func (f *queryFlags) query(now time.Time) (*decision.Query, error) {
	values := url.Values{}
	set := func(key, value string) {
		if value != "" {
			values.Set(key, value)
		}
	}

	since, err := resolveTime(f.since, now)
	if err != nil {
		return nil, fmt.Errorf("invalid --since: %w", err)
	}
	until, err := resolveTime(f.until, now)
	if err != nil {
		return nil, fmt.Errorf("invalid --until: %w", err)
	}
	set("startTime", since)
	set("endTime", until)
	if len(f.ids) > 0 {
		values.Set("id", strings.Join(f.ids, ","))
	}
	set("useCaseId", f.useCaseID)
	set("tier", f.tier)
	set("isModel", f.isModel)
	set("ruleId", f.ruleID)
	set("rulesetHash", f.rulesetHash)
	set("hasMissingEvidence", f.hasMissingEvidence)
	if f.limit != 0 {
		values.Set("limit", strconv.Itoa(f.limit))
	}
	if f.offset != 0 {
		values.Set("offset", strconv.Itoa(f.offset))
	}
	set("sortBy", f.sortBy)
	set("sortOrder", f.sortOrder)

	return server.ParseQuery(values)
}

// resolveTime accepts RFC 3339 or a duration meaning that long before now.
func resolveTime(v string, now time.Time) (string, error) {
	if v == "" {
		return "", nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return now.Add(-d).UTC().Format(time.RFC3339), nil
	}
	if _, err := time.Parse(time.RFC3339, v); err != nil {
		return "", fmt.Errorf("%q is neither RFC 3339 nor a duration", v)
	}
	return v, nil
}

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "Query, export and prune recorded decisions",
	Long: `Work with the decision log in the configured decision store.

Examples:
  # Recent high-tier decisions
  arbiter decisions query --tier "Tier 1" --since 24h

  # One decision as JSON
  arbiter decisions get 3f9c1a2e-... --output json

  # Export everything with missing evidence to CSV
  arbiter decisions export --missing-evidence true --format csv --out gaps.csv

  # Apply the retention policy now
  arbiter decisions prune`,
}

var (
	decisionsQueryFlags  queryFlags
	decisionsExportFlags queryFlags

	decisionsOutput string
	exportFormat    string
	exportOut       string
	exportPretty    bool
	exportProgress  bool
	pruneDryRun     bool
)

var decisionsQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List decisions matching filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(decisionsOutput)
		if err != nil {
			return err
		}
		q, err := decisionsQueryFlags.query(time.Now())
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, _ *config.Config, store decision.Storage) error {
			records, err := store.Query(ctx, q)
			if err != nil {
				return err
			}
			return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), decisionTable(records))
		})
	},
}

var decisionsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one decision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(decisionsOutput)
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, _ *config.Config, store decision.Storage) error {
			record, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if format == cli.FormatText {
				writeDecision(cmd.OutOrStdout(), record)
				return nil
			}
			return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), decisionTable{record})
		})
	},
}

var decisionsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export decisions as JSON or CSV",
	Long: `Export every decision matching the filters. Unlike query, --limit
defaults to the maximum page size. Progress is reported on stderr.`,
	RunE: runExport,
}

var decisionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy now",
	Long: `Delete decisions older than retention.days and trim the log to
retention.max_records, archiving first when retention.archive_before_delete
is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, cfg *config.Config, store decision.Storage) error {
			out := cmd.OutOrStdout()
			if pruneDryRun {
				fmt.Fprintf(out, "Retention: %d days, max %d records\n", cfg.Retention.Days, cfg.Retention.MaxRecords)
				return nil
			}
			deleted, err := retention.NewPruner(store, retentionConfig(&cfg.Retention)).Prune(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Pruned %d decision(s)\n", deleted)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(decisionsCmd)
	decisionsCmd.AddCommand(decisionsQueryCmd, decisionsGetCmd, decisionsExportCmd, decisionsPruneCmd)

	decisionsCmd.PersistentFlags().StringVarP(&decisionsOutput, "output", "o", "text", "output format: text, json, csv")

	decisionsQueryFlags.register(decisionsQueryCmd)
	decisionsExportFlags.register(decisionsExportCmd)

	decisionsExportCmd.Flags().StringVarP(&exportFormat, "format", "f", export.FormatJSON, "export format: json, csv")
	decisionsExportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")
	decisionsExportCmd.Flags().BoolVar(&exportPretty, "pretty", false, "indent JSON output")
	decisionsExportCmd.Flags().BoolVar(&exportProgress, "progress", false, "report progress on stderr")

	decisionsPruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "print the retention policy without deleting")
}

// withStore opens the configured decision store for one command.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, store decision.Storage) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Decisions.Enabled {
		return cli.NewConfigError(cfgFile, "decisions.enabled is false")
	}
	if _, err := quietLogger(cfg); err != nil {
		return err
	}
	store, err := openStorage(&cfg.Decisions)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, cfg, store)
}

func runExport(cmd *cobra.Command, args []string) error {
	if decisionsExportFlags.limit == 0 {
		decisionsExportFlags.limit = decision.MaxLimit
	}
	q, err := decisionsExportFlags.query(time.Now())
	if err != nil {
		return err
	}
	exporter, err := export.New(exportFormat, exportPretty)
	if err != nil {
		return err
	}

	return withStore(cmd, func(ctx context.Context, _ *config.Config, store decision.Storage) error {
		ctx, cancel := cli.SetupSignalHandler(ctx)
		defer cancel()

		var w io.Writer = cmd.OutOrStdout()
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		var progress cli.ProgressReporter
		if exportProgress {
			total, err := store.Count(ctx, q)
			if err != nil {
				return err
			}
			if remaining := total - int64(q.Offset); remaining < int64(q.Limit) {
				total = max(remaining, 0)
			} else {
				total = int64(q.Limit)
			}
			progress = cli.NewProgressReporter(cmd.ErrOrStderr())
			progress.Start(total)
		}

		err := exportDecisions(ctx, store, q, exporter, w, progress)
		if progress != nil {
			if err != nil {
				progress.Error(err)
			} else {
				progress.Finish()
			}
		}
		return err
	})
}

// exportDecisions streams matching records through exporter when it can
// stream and otherwise exports one query result.
func exportDecisions(ctx context.Context, store decision.Storage, q *decision.Query, exporter decision.Exporter, w io.Writer, progress cli.ProgressReporter) error {
	streamer, ok := exporter.(export.StreamExporter)
	if !ok {
		records, err := store.Query(ctx, q)
		if err != nil {
			return err
		}
		if progress != nil {
			progress.Update(int64(len(records)))
		}
		return exporter.Export(ctx, records, w)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recordsCh, errCh, err := store.QueryStream(ctx, q)
	if err != nil {
		return err
	}

	counted := make(chan *decision.Record)
	go func() {
		defer close(counted)
		var n int64
		for record := range recordsCh {
			select {
			case counted <- record:
			case <-ctx.Done():
				return
			}
			n++
			if progress != nil {
				progress.Update(n)
			}
		}
	}()

	if err := streamer.ExportStream(ctx, counted, w); err != nil {
		return err
	}
	return <-errCh
}

// decisionTable renders decision records as a table or JSON list.
type decisionTable []*decision.Record

func (d decisionTable) Table() cli.Table {
	t := cli.Table{Headers: []string{"ID", "EVALUATED", "USE CASE", "TIER", "MODEL", "RULES", "MISSING"}}
	for _, r := range d {
		t.Rows = append(t.Rows, []string{
			r.ID,
			r.EvaluatedAt.UTC().Format(time.RFC3339),
			r.UseCaseID,
			r.Tier,
			string(r.IsModel),
			strings.Join(r.TriggeredRuleIDs, ","),
			strconv.Itoa(len(r.MissingEvidence)),
		})
	}
	return t
}

func (d decisionTable) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]*decision.Record(d))
}

func writeDecision(w io.Writer, r *decision.Record) {
	fmt.Fprintf(w, "ID:          %s\n", r.ID)
	fmt.Fprintf(w, "Use case:    %s\n", r.UseCaseID)
	if r.Title != "" {
		fmt.Fprintf(w, "Title:       %s\n", r.Title)
	}
	fmt.Fprintf(w, "Evaluated:   %s\n", r.EvaluatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "Recorded:    %s\n", r.RecordedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "Ruleset:     %s %s (%s)\n", r.RulesetName, r.RulesetVersion, r.RulesetHash)
	fmt.Fprintf(w, "Tier:        %s\n", r.Tier)
	fmt.Fprintf(w, "Is model:    %s\n", r.IsModel)
	fmt.Fprintf(w, "Input hash:  %s\n", r.InputHash)
	fmt.Fprintf(w, "Result hash: %s\n", r.ResultHash)

	writeList(w, "Triggered rules", r.TriggeredRuleIDs)
	writeList(w, "Required artifacts", r.RequiredArtifacts)
	writeList(w, "Missing evidence", r.MissingEvidence)
	writeList(w, "Risk flags", r.RiskFlags)
}
