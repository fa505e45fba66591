package config

import "time"

// Config is the root configuration for the arbiter service and CLI.
type Config struct {
	// Server contains HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Rules locates the ruleset and controls hot reload.
	Rules RulesConfig `yaml:"rules"`

	// Decisions controls decision persistence.
	Decisions DecisionsConfig `yaml:"decisions"`

	// Retention controls pruning of stored decisions.
	Retention RetentionConfig `yaml:"retention"`

	// Telemetry contains logging, metrics and health configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is "host:port".
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 15s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes caps request bodies.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration for browser clients.
type CORSConfig struct {
	// Enabled turns on the CORS middleware.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins lists allowed origins ("*" for any).
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxAge is how long preflight results may be cached, in seconds.
	// Default: 300
	MaxAge int `yaml:"max_age"`
}

// RulesConfig locates the ruleset.
type RulesConfig struct {
	// Path is a ruleset file or a directory of .yaml/.yml files.
	// Default: "./rulesets"
	Path string `yaml:"path"`

	// Watch reloads the ruleset when files change.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval coalesces bursts of file events.
	// Default: 250ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// Strict promotes validation warnings to errors.
	// Default: false
	Strict bool `yaml:"strict"`

	// MaxFileSize rejects ruleset files larger than this many bytes.
	// Default: 10485760 (10MB)
	MaxFileSize int64 `yaml:"max_file_size"`

	// MaxConditionDepth limits how deeply all/any combinators may nest.
	// Default: 16
	MaxConditionDepth int `yaml:"max_condition_depth"`
}

// DecisionsConfig controls decision persistence.
type DecisionsConfig struct {
	// Enabled turns on decision recording.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend is "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// PersistByDefault records every evaluation, not only those that ask
	// for it with persist=true.
	// Default: false
	PersistByDefault bool `yaml:"persist_by_default"`

	// SQLite contains SQLite backend settings.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains recorder settings.
	Recorder RecorderConfig `yaml:"recorder"`
}

// SQLiteConfig contains SQLite backend settings.
type SQLiteConfig struct {
	// Driver is "sqlite3" (mattn, cgo) or "sqlite" (modernc, pure Go).
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// Path is the database file.
	// Default: "data/decisions.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the connection pool size.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the idle pool size.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains recorder settings.
type RecorderConfig struct {
	// Async writes decisions through a buffered background worker.
	// Default: true
	Async bool `yaml:"async"`

	// AsyncBuffer is the worker channel size.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds each storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// StoreInput keeps the evaluated use-case record on each decision.
	// Default: true
	StoreInput bool `yaml:"store_input"`
}

// RetentionConfig controls pruning of stored decisions.
type RetentionConfig struct {
	// Days keeps decisions this many days. 0 keeps them forever.
	// Default: 365
	Days int `yaml:"days"`

	// MaxRecords caps stored decisions. 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is a standard cron expression. Empty disables
	// scheduled pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// ArchiveBeforeDelete writes pruned decisions to JSON first.
	// Default: false
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath is the archive directory.
	// Default: "data/archives/"
	ArchivePath string `yaml:"archive_path"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains OpenTelemetry tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health endpoint configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII masks email addresses in log attributes.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactKeys are attribute keys whose values are always replaced.
	RedactKeys []string `yaml:"redact_keys"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "arbiter"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem.
	// Default: "rules"
	Subsystem string `yaml:"subsystem"`

	// EvaluationDurationBuckets are histogram buckets in seconds.
	// Default: exponential from 10µs
	EvaluationDurationBuckets []float64 `yaml:"evaluation_duration_buckets"`
}

// TracingConfig contains OpenTelemetry tracing configuration. Spans cover
// HTTP requests and rule evaluations and are exported over OTLP/gRPC.
type TracingConfig struct {
	// Enabled turns on span export.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP collector "host:port".
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// ServiceName is reported as service.name.
	// Default: "arbiter"
	ServiceName string `yaml:"service_name"`

	// Sampler is "always", "never" or "ratio".
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction sampled with the "ratio" sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	// LivenessPath is the liveness endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the readiness endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout bounds each readiness check.
	// Default: 2s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
