package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"keystone-mrm/arbiter/pkg/cli"
	"keystone-mrm/arbiter/pkg/config"
	"keystone-mrm/arbiter/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile   string
	logLevel  string
	rulesPath string
)

var rootCmd = &cobra.Command{
	Use:   "arbiter",
	Short: "Arbiter - model risk tiering rules engine",
	Long: `Arbiter evaluates AI and model use cases against a declarative ruleset.

For each use case it determines:
  - the risk tier (highest tier among triggered rules)
  - whether the use case meets the model definition (Yes, No, Model-like)
  - the evidence artifacts the tier and triggered rules require
  - which of those artifacts are missing

Rulesets are YAML files that can be linted, hot reloaded and served over HTTP.
Decisions can be recorded for audit, queried, exported and pruned.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the mapped status.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || exitErr.Err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	os.Exit(cli.ExitCode(err))
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&rulesPath, "rules", "r", "", "override ruleset file or directory")
}

// loadConfig reads the config file with ARBITER_* overrides and applies the
// global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err.Error())
	}
	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
	if rulesPath != "" {
		cfg.Rules.Path = rulesPath
	}
	if err := config.Validate(cfg); err != nil {
		return nil, cli.NewConfigError(cfgFile, err.Error())
	}
	return cfg, nil
}

// newLogger builds the command logger on stderr and installs it as the
// slog default so package loggers share its level and format.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	logger, err := logging.New(logging.Config{
		Level:      cfg.Telemetry.Logging.Level,
		Format:     cfg.Telemetry.Logging.Format,
		AddSource:  cfg.Telemetry.Logging.AddSource,
		RedactPII:  cfg.Telemetry.Logging.RedactPII,
		RedactKeys: cfg.Telemetry.Logging.RedactKeys,
		Writer:     w,
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)
	return logger, nil
}

// quietLogger is newLogger for one-shot commands: unless --log-level is set,
// only warnings and errors reach stderr.
func quietLogger(cfg *config.Config) (*slog.Logger, error) {
	if logLevel == "" {
		cfg.Telemetry.Logging.Level = "warn"
	}
	return newLogger(cfg, nil)
}
