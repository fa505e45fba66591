package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(cfg *Config)
		errorField string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:       "listen address without port",
			mutate:     func(cfg *Config) { cfg.Server.ListenAddress = "localhost" },
			errorField: "server.listen_address",
		},
		{
			name:       "negative read timeout",
			mutate:     func(cfg *Config) { cfg.Server.ReadTimeout = -1 },
			errorField: "server.read_timeout",
		},
		{
			name:       "cors without origins",
			mutate:     func(cfg *Config) { cfg.Server.CORS.Enabled = true },
			errorField: "server.cors.allowed_origins",
		},
		{
			name:       "empty rules path",
			mutate:     func(cfg *Config) { cfg.Rules.Path = " " },
			errorField: "rules.path",
		},
		{
			name:       "negative condition depth",
			mutate:     func(cfg *Config) { cfg.Rules.MaxConditionDepth = -1 },
			errorField: "rules.max_condition_depth",
		},
		{
			name:       "unknown backend",
			mutate:     func(cfg *Config) { cfg.Decisions.Backend = "postgres" },
			errorField: "decisions.backend",
		},
		{
			name: "unknown sqlite driver",
			mutate: func(cfg *Config) {
				cfg.Decisions.Backend = "sqlite"
				cfg.Decisions.SQLite.Driver = "sqlcipher"
			},
			errorField: "decisions.sqlite.driver",
		},
		{
			name: "idle exceeds open",
			mutate: func(cfg *Config) {
				cfg.Decisions.Backend = "sqlite"
				cfg.Decisions.SQLite.MaxOpenConns = 1
				cfg.Decisions.SQLite.MaxIdleConns = 2
			},
			errorField: "decisions.sqlite.max_idle_conns",
		},
		{
			name:       "sqlite settings ignored for memory backend",
			mutate:     func(cfg *Config) { cfg.Decisions.SQLite.Driver = "sqlcipher" },
			errorField: "",
		},
		{
			name:       "zero async buffer",
			mutate:     func(cfg *Config) { cfg.Decisions.Recorder.AsyncBuffer = 0 },
			errorField: "decisions.recorder.async_buffer",
		},
		{
			name:       "negative retention",
			mutate:     func(cfg *Config) { cfg.Retention.Days = -1 },
			errorField: "retention.days",
		},
		{
			name:       "bad cron",
			mutate:     func(cfg *Config) { cfg.Retention.PruneSchedule = "every day" },
			errorField: "retention.prune_schedule",
		},
		{
			name:   "empty schedule disables pruning",
			mutate: func(cfg *Config) { cfg.Retention.PruneSchedule = "" },
		},
		{
			name: "archive without path",
			mutate: func(cfg *Config) {
				cfg.Retention.ArchiveBeforeDelete = true
				cfg.Retention.ArchivePath = ""
			},
			errorField: "retention.archive_path",
		},
		{
			name:       "bad log level",
			mutate:     func(cfg *Config) { cfg.Telemetry.Logging.Level = "verbose" },
			errorField: "telemetry.logging.level",
		},
		{
			name:       "bad namespace",
			mutate:     func(cfg *Config) { cfg.Telemetry.Metrics.Namespace = "my-app" },
			errorField: "telemetry.metrics.namespace",
		},
		{
			name:       "unsorted buckets",
			mutate:     func(cfg *Config) { cfg.Telemetry.Metrics.EvaluationDurationBuckets = []float64{1, 0.5} },
			errorField: "telemetry.metrics.evaluation_duration_buckets",
		},
		{
			name: "bad tracing sampler",
			mutate: func(cfg *Config) {
				cfg.Telemetry.Tracing.Enabled = true
				cfg.Telemetry.Tracing.Sampler = "sometimes"
			},
			errorField: "telemetry.tracing.sampler",
		},
		{
			name:       "tracing settings ignored when disabled",
			mutate:     func(cfg *Config) { cfg.Telemetry.Tracing.Sampler = "sometimes" },
			errorField: "",
		},
		{
			name:       "readiness collides with metrics",
			mutate:     func(cfg *Config) { cfg.Telemetry.Health.ReadinessPath = "/metrics" },
			errorField: "telemetry.health.readiness_path",
		},
		{
			name:       "same liveness and readiness",
			mutate:     func(cfg *Config) { cfg.Telemetry.Health.LivenessPath = "/ready" },
			errorField: "telemetry.health.readiness_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.errorField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}

			var validationErr ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			found := false
			for _, fe := range validationErr.Errors {
				if fe.Field == tt.errorField {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected error for field %q, got errors: %v", tt.errorField, validationErr.Errors)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Server.ListenAddress = ""
	cfg.Decisions.Backend = "mongo"
	cfg.Telemetry.Logging.Format = "xml"

	err := Validate(cfg)
	var validationErr ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Validate() error = %v, want ValidationError", err)
	}
	if len(validationErr.Errors) != 3 {
		t.Errorf("len(Errors) = %d, want 3: %v", len(validationErr.Errors), validationErr.Errors)
	}
	if !strings.Contains(err.Error(), "3 errors") {
		t.Errorf("Error() = %q, want error count", err.Error())
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      ValidationError
		contains string
	}{
		{"empty errors", ValidationError{}, "configuration validation failed"},
		{"single error", ValidationError{Errors: []FieldError{{Field: "rules.path", Message: "is required"}}}, "rules.path: is required"},
		{"multiple errors", ValidationError{Errors: []FieldError{{Field: "a", Message: "x"}, {Field: "b", Message: "y"}}}, "2 errors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); !strings.Contains(got, tt.contains) {
				t.Errorf("Error() = %q, want it to contain %q", got, tt.contains)
			}
		})
	}
}
