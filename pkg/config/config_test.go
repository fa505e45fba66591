package config

import (
	"reflect"
	"testing"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"server.listen_address", cfg.Server.ListenAddress, DefaultListenAddress},
		{"server.max_body_bytes", cfg.Server.MaxBodyBytes, DefaultMaxBodyBytes},
		{"rules.path", cfg.Rules.Path, DefaultRulesPath},
		{"rules.watch", cfg.Rules.Watch, false},
		{"rules.max_file_size", cfg.Rules.MaxFileSize, DefaultRulesMaxFileSize},
		{"rules.max_condition_depth", cfg.Rules.MaxConditionDepth, 16},
		{"decisions.enabled", cfg.Decisions.Enabled, true},
		{"decisions.backend", cfg.Decisions.Backend, "memory"},
		{"decisions.sqlite.driver", cfg.Decisions.SQLite.Driver, "sqlite3"},
		{"decisions.sqlite.wal_mode", cfg.Decisions.SQLite.WALMode, true},
		{"decisions.recorder.async", cfg.Decisions.Recorder.Async, true},
		{"decisions.recorder.store_input", cfg.Decisions.Recorder.StoreInput, true},
		{"retention.days", cfg.Retention.Days, 365},
		{"retention.prune_schedule", cfg.Retention.PruneSchedule, "0 3 * * *"},
		{"telemetry.logging.level", cfg.Telemetry.Logging.Level, "info"},
		{"telemetry.logging.redact_pii", cfg.Telemetry.Logging.RedactPII, true},
		{"telemetry.metrics.enabled", cfg.Telemetry.Metrics.Enabled, true},
		{"telemetry.metrics.namespace", cfg.Telemetry.Metrics.Namespace, "arbiter"},
		{"telemetry.health.readiness_path", cfg.Telemetry.Health.ReadinessPath, "/ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.want) {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("Validate(NewDefaultConfig()) = %v, want nil", err)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Rules.Path = "/etc/arbiter/rules"
	cfg.Telemetry.Metrics.EvaluationDurationBuckets = []float64{0.1, 1}

	ApplyDefaults(cfg)

	if cfg.Rules.Path != "/etc/arbiter/rules" {
		t.Errorf("Rules.Path = %q, want explicit value kept", cfg.Rules.Path)
	}
	if len(cfg.Telemetry.Metrics.EvaluationDurationBuckets) != 2 {
		t.Errorf("buckets = %v, want explicit value kept", cfg.Telemetry.Metrics.EvaluationDurationBuckets)
	}
	if cfg.Retention.Days != 0 {
		t.Errorf("Retention.Days = %d, want 0 left alone", cfg.Retention.Days)
	}
}

func TestApplyDefaults_DoesNotAliasBuckets(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Telemetry.Metrics.EvaluationDurationBuckets[0] = 42
	if DefaultEvaluationDurationBuckets[0] == 42 {
		t.Error("ApplyDefaults shares the default bucket slice")
	}
}
