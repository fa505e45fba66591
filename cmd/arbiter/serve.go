package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"keystone-mrm/arbiter/pkg/cli"
	"keystone-mrm/arbiter/pkg/config"
	"keystone-mrm/arbiter/pkg/decision"
	"keystone-mrm/arbiter/pkg/decision/recorder"
	"keystone-mrm/arbiter/pkg/decision/retention"
	"keystone-mrm/arbiter/pkg/rules/engine"
	"keystone-mrm/arbiter/pkg/rules/source"
	"keystone-mrm/arbiter/pkg/server"
	"keystone-mrm/arbiter/pkg/telemetry"
	"keystone-mrm/arbiter/pkg/telemetry/health"
	"keystone-mrm/arbiter/pkg/telemetry/metrics"
)

// pendingInterval is how often the recorder backlog gauge is refreshed.
const pendingInterval = 5 * time.Second

var serveFlags struct {
	listenAddress string
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Arbiter API server",
	Long: `Start the HTTP API server with the specified configuration.

The server loads the ruleset, optionally watches it for changes, records
decisions to the configured store and prunes them on the retention schedule.

Examples:
  # Start with default config
  arbiter serve

  # Start with custom config
  arbiter serve --config /etc/arbiter/arbiter.yaml

  # Override listen address
  arbiter serve --listen 0.0.0.0:9090

  # Validate config and ruleset without starting the server
  arbiter serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config and ruleset without starting the server")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}

	tel, err := telemetry.New(&cfg.Telemetry, telemetry.BuildInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
	}, nil)
	if err != nil {
		return cli.NewConfigError("telemetry", err.Error())
	}
	logger := tel.Logger()
	slog.SetDefault(logger)

	ctx, cancel := cli.SetupSignalHandler(cmd.Context())
	defer cancel()

	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer done()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	collector := tel.Metrics()
	cache := source.NewCache(newRulesetSource(&cfg.Rules, logger), logger).WithObserver(collector)
	if err := cache.Load(ctx); err != nil {
		return fmt.Errorf("failed to load ruleset: %w", err)
	}

	out := cmd.OutOrStdout()
	status := cache.Status()
	fmt.Fprintf(out, "✓ Ruleset loaded: %s %s (%d rules, %s)\n", status.Name, status.Version, status.Rules, status.Hash)

	if serveFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	eng := engine.NewEngine(cache, logger).WithObserver(collector)
	checker := tel.Health()
	checker.RegisterCheck("ruleset", health.RulesetCheck(cache))

	deps := server.Dependencies{
		Engine:           eng,
		Rules:            cache,
		Telemetry:        tel,
		PersistByDefault: cfg.Decisions.PersistByDefault,
		AsyncRecord:      cfg.Decisions.Recorder.Async,
	}

	if cfg.Decisions.Enabled {
		store, rec, pruner, err := startDecisions(ctx, cfg, collector, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		defer rec.Close()
		defer pruner.Stop()

		deps.Store = store
		deps.Recorder = rec
		checker.RegisterCheck("storage", health.StorageCheck(store))
		if cfg.Decisions.Recorder.Async {
			checker.RegisterCheck("recorder_backlog", health.BacklogCheck(rec.Pending, backlogLimit(cfg.Decisions.Recorder.AsyncBuffer)))
			go reportPending(ctx, rec, collector.SetRecorderPending)
		}
		fmt.Fprintf(out, "✓ Decision store initialized (%s)\n", cfg.Decisions.Backend)
	}

	if cfg.Rules.Watch {
		watcher, err := source.NewWatcher(&source.WatcherConfig{
			Path:             cfg.Rules.Path,
			DebounceInterval: cfg.Rules.DebounceInterval,
			Extensions:       []string{".yaml", ".yml"},
			SkipHidden:       true,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to create ruleset watcher: %w", err)
		}
		defer watcher.Stop()
		go func() {
			if err := watcher.Watch(ctx, func() error { return cache.Reload(ctx) }); err != nil {
				logger.Error("ruleset watcher exited", "error", err)
			}
		}()
		fmt.Fprintf(out, "✓ Watching %s for changes\n", cfg.Rules.Path)
	}

	srv, err := server.NewServer(&cfg.Server, deps)
	if err != nil {
		return err
	}

	printEndpoints(out, cfg)
	return srv.Start(ctx)
}

// startDecisions opens the decision store and starts the recorder and the
// retention schedule.
func startDecisions(ctx context.Context, cfg *config.Config, collector *metrics.Collector, logger *slog.Logger) (decision.Storage, *recorder.Recorder, *retention.Pruner, error) {
	store, err := openStorage(&cfg.Decisions)
	if err != nil {
		return nil, nil, nil, err
	}

	rec := newRecorder(store, &cfg.Decisions.Recorder).WithObserver(collector)
	pruner := retention.NewPruner(store, retentionConfig(&cfg.Retention)).WithObserver(collector)
	if err := pruner.Start(ctx); err != nil {
		rec.Close()
		store.Close()
		return nil, nil, nil, fmt.Errorf("failed to start retention schedule: %w", err)
	}
	if next := pruner.NextPruning(); next != nil {
		logger.Info("decision retention scheduled", "next_pruning", next.Format(time.RFC3339))
	}
	return store, rec, pruner, nil
}

// backlogLimit is the pending-write count above which readiness fails.
func backlogLimit(buffer int) int {
	if limit := buffer * 9 / 10; limit > 0 {
		return limit
	}
	return 1
}

func reportPending(ctx context.Context, rec *recorder.Recorder, set func(int)) {
	ticker := time.NewTicker(pendingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			set(rec.Pending())
		}
	}
}

func printEndpoints(w io.Writer, cfg *config.Config) {
	addr := cfg.Server.ListenAddress
	fmt.Fprintf(w, "✓ Server listening on %s\n", addr)
	fmt.Fprintf(w, "✓ Health endpoint: http://%s%s\n", addr, cfg.Telemetry.Health.LivenessPath)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(w, "✓ Metrics endpoint: http://%s%s\n", addr, cfg.Telemetry.Metrics.Path)
	}
}
