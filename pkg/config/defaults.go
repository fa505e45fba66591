package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBodyBytes    = int64(1 << 20)
	DefaultCORSMaxAge      = 300

	// Rules defaults
	DefaultRulesPath         = "./rulesets"
	DefaultDebounceInterval  = 250 * time.Millisecond
	DefaultRulesMaxFileSize  = int64(10 << 20)
	DefaultMaxConditionDepth = 16

	// Decision defaults
	DefaultDecisionsEnabled     = true
	DefaultDecisionsBackend     = "memory"
	DefaultSQLiteDriver         = "sqlite3"
	DefaultSQLitePath           = "data/decisions.db"
	DefaultSQLiteMaxOpenConns   = 10
	DefaultSQLiteMaxIdleConns   = 5
	DefaultSQLiteWALMode        = true
	DefaultSQLiteBusyTimeout    = 5 * time.Second
	DefaultRecorderAsync        = true
	DefaultRecorderAsyncBuffer  = 1000
	DefaultRecorderWriteTimeout = 5 * time.Second
	DefaultRecorderStoreInput   = true
	DefaultRetentionDays        = 365
	DefaultRetentionSchedule    = "0 3 * * *"
	DefaultRetentionArchivePath = "data/archives/"
	DefaultRetentionMaxRecords  = int64(0)

	// Telemetry defaults
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultLogRedactPII       = true
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "arbiter"
	DefaultMetricsSubsystem   = "rules"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingTimeout     = 10 * time.Second
	DefaultTracingService     = "arbiter"
	DefaultTracingSampler     = "always"
	DefaultTracingSampleRatio = 1.0
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"
	DefaultHealthCheckTimeout = 2 * time.Second
)

// DefaultEvaluationDurationBuckets covers 10µs to roughly 80ms. A single
// evaluation walks a few dozen conditions.
var DefaultEvaluationDurationBuckets = []float64{
	0.00001, 0.00002, 0.00005, 0.0001, 0.0002, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.08,
}

// NewDefaultConfig returns a configuration with every field at its default.
// Loading unmarshals YAML on top of it, so booleans that default to true
// stay true unless a file sets them to false.
func NewDefaultConfig() *Config {
	cfg := &Config{
		Decisions: DecisionsConfig{
			Enabled: DefaultDecisionsEnabled,
			SQLite: SQLiteConfig{
				WALMode: DefaultSQLiteWALMode,
			},
			Recorder: RecorderConfig{
				Async:      DefaultRecorderAsync,
				StoreInput: DefaultRecorderStoreInput,
			},
		},
		Retention: RetentionConfig{
			Days:          DefaultRetentionDays,
			PruneSchedule: DefaultRetentionSchedule,
			MaxRecords:    DefaultRetentionMaxRecords,
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{RedactPII: DefaultLogRedactPII},
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
			Tracing: TracingConfig{SampleRatio: DefaultTracingSampleRatio},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued non-boolean fields with their defaults.
// Retention.Days and Retention.PruneSchedule are left alone: zero and empty
// are meaningful there.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Server.CORS.MaxAge == 0 {
		cfg.Server.CORS.MaxAge = DefaultCORSMaxAge
	}

	// Rules defaults
	if cfg.Rules.Path == "" {
		cfg.Rules.Path = DefaultRulesPath
	}
	if cfg.Rules.DebounceInterval == 0 {
		cfg.Rules.DebounceInterval = DefaultDebounceInterval
	}
	if cfg.Rules.MaxFileSize == 0 {
		cfg.Rules.MaxFileSize = DefaultRulesMaxFileSize
	}
	if cfg.Rules.MaxConditionDepth == 0 {
		cfg.Rules.MaxConditionDepth = DefaultMaxConditionDepth
	}

	// Decision defaults
	if cfg.Decisions.Backend == "" {
		cfg.Decisions.Backend = DefaultDecisionsBackend
	}
	if cfg.Decisions.SQLite.Driver == "" {
		cfg.Decisions.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.Decisions.SQLite.Path == "" {
		cfg.Decisions.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Decisions.SQLite.MaxOpenConns == 0 {
		cfg.Decisions.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.Decisions.SQLite.MaxIdleConns == 0 {
		cfg.Decisions.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if cfg.Decisions.SQLite.BusyTimeout == 0 {
		cfg.Decisions.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Decisions.Recorder.AsyncBuffer == 0 {
		cfg.Decisions.Recorder.AsyncBuffer = DefaultRecorderAsyncBuffer
	}
	if cfg.Decisions.Recorder.WriteTimeout == 0 {
		cfg.Decisions.Recorder.WriteTimeout = DefaultRecorderWriteTimeout
	}
	if cfg.Retention.ArchivePath == "" {
		cfg.Retention.ArchivePath = DefaultRetentionArchivePath
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.EvaluationDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.EvaluationDurationBuckets = append([]float64(nil), DefaultEvaluationDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
