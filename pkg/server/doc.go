// Package server exposes the rules engine and the decision log over HTTP.
//
// # Routes
//
//	POST /v1/evaluate                   evaluate a use case, optionally recording the decision
//	POST /v1/explain                    per-rule and per-criterion match trace
//	GET  /v1/fields                     record fields rulesets may reference
//	GET  /v1/ruleset                    active ruleset and reload counters
//	POST /v1/ruleset/reload             reload from the configured source
//	GET  /v1/decisions                  query the decision log (?format=json|csv exports)
//	GET  /v1/decisions/{id}             one decision record
//	GET  /v1/decisions/{id}/checklist   evidence checklist (?format=json|csv)
//	GET  /health, /ready, /version      probes and build info
//	GET  /metrics                       Prometheus exposition
//
// Probe and metrics paths come from the telemetry configuration.
//
// # Evaluate Requests
//
// A request carries either a typed record or a loose attribute map, plus the
// attachment list the derived fields are computed from:
//
//	{
//	    "useCaseId": "uc-42",
//	    "attributes": {"usageType": "Decisioning", "containsPii": "true"},
//	    "attachments": [{"type": "Model card"}],
//	    "persist": true
//	}
//
// Persistence is resolved from the persist query parameter, then the body
// field, then the server default.
//
// # Middleware
//
// Every request gets an X-Request-ID, a server span, request metrics labelled
// by route pattern, one structured log line, and panic recovery. CORS is
// applied when enabled. Bodies under /v1 are capped at MaxBodyBytes.
//
// # Errors
//
// Failures answer with ErrorResponse:
//
//	{"error": "no ruleset loaded", "code": "no_ruleset", "requestId": "..."}
//
// # Lifecycle
//
//	srv, err := server.NewServer(&cfg.Server, server.Dependencies{
//	    Engine:    eng,
//	    Rules:     cache,
//	    Store:     store,
//	    Recorder:  rec,
//	    Telemetry: tel,
//	})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx) // blocks until ctx ends or SIGINT/SIGTERM
package server
