// Package tracing provides OpenTelemetry spans for HTTP requests and rule
// evaluations, exported over OTLP/gRPC.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "rules.evaluate")
//	ev, err := eng.Evaluate(ctx, record)
//	tracing.SetEvaluationAttributes(span, ev)
//	tracing.SetStatus(span, err)
//	span.End()
//
// A disabled configuration yields a no-op tracer.
//
// # Propagation
//
// Extract and Inject read and write W3C traceparent, tracestate and baggage
// headers, so a caller's trace continues through the service.
//
// # Sampling
//
// Root spans use "always", "never" or "ratio" (TraceIDRatioBased); child
// spans follow their parent's decision.
package tracing
