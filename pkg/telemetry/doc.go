// Package telemetry wires the observability stack of the arbiter service.
//
// # Components
//
//   - logging: slog handlers with request-scoped attributes and redaction
//   - metrics: Prometheus collector for evaluations, reloads and storage
//   - tracing: OpenTelemetry spans for requests and evaluations
//   - health: liveness and readiness probes
//
// # Usage
//
//	tel, err := telemetry.New(&cfg.Telemetry, telemetry.BuildInfo{Version: version}, nil)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	slog.SetDefault(tel.Logger())
//	eng := engine.NewEngine(cache, tel.Logger()).WithObserver(tel.Metrics())
//
// # Redaction
//
// With redact_pii on, email addresses in string attributes are masked and
// attributes named in redact_keys are replaced with "[REDACTED]". Use-case
// descriptions and contact fields routinely carry names and addresses.
package telemetry
