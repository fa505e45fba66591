package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"keystone-mrm/arbiter/pkg/config"
	"keystone-mrm/arbiter/pkg/telemetry/health"
	"keystone-mrm/arbiter/pkg/telemetry/logging"
	"keystone-mrm/arbiter/pkg/telemetry/metrics"
	"keystone-mrm/arbiter/pkg/telemetry/tracing"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Telemetry bundles the logger, metrics collector, tracer and health checker
// built from one TelemetryConfig.
type Telemetry struct {
	config  *config.TelemetryConfig
	build   BuildInfo
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	health  *health.Checker
}

// New builds every telemetry component. Logs go to w, or stderr when nil.
func New(cfg *config.TelemetryConfig, build BuildInfo, w io.Writer) (*Telemetry, error) {
	if cfg == nil {
		cfg = &config.NewDefaultConfig().Telemetry
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		AddSource:  cfg.Logging.AddSource,
		RedactPII:  cfg.Logging.RedactPII,
		RedactKeys: cfg.Logging.RedactKeys,
		Writer:     w,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	tracer, err := tracing.New(&cfg.Tracing, build.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	return &Telemetry{
		config:  cfg,
		build:   build,
		logger:  logger,
		metrics: metrics.NewCollector(&cfg.Metrics, nil),
		tracer:  tracer,
		health:  health.New(cfg.Health.CheckTimeout),
	}, nil
}

// Logger returns the root logger.
func (t *Telemetry) Logger() *slog.Logger { return t.logger }

// Metrics returns the Prometheus collector.
func (t *Telemetry) Metrics() *metrics.Collector { return t.metrics }

// Tracer returns the tracer, a no-op when tracing is disabled.
func (t *Telemetry) Tracer() *tracing.Tracer { return t.tracer }

// Health returns the readiness checker.
func (t *Telemetry) Health() *health.Checker { return t.health }

// Build returns the build information passed to New.
func (t *Telemetry) Build() BuildInfo { return t.build }

// Config returns the telemetry configuration.
func (t *Telemetry) Config() *config.TelemetryConfig { return t.config }

// Shutdown flushes spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if err := t.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
	}
	return errors.Join(errs...)
}
