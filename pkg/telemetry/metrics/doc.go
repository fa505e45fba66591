// Package metrics exposes Prometheus metrics for the arbiter service.
//
// # Metric Families
//
//   - Evaluation: evaluations by tier and model determination, duration,
//     rule triggers, missing evidence
//   - Ruleset: reloads by status, active ruleset info, rule count
//   - Store: decision storage operations, retention pruning, recorder queue
//   - Request: HTTP requests by route and status code
//
// All names are prefixed "<namespace>_<subsystem>_", "arbiter_rules_" by
// default.
//
// # Usage
//
// Collector implements the observer interfaces of the engine, ruleset cache,
// decision recorder and retention pruner:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	cache.WithObserver(collector)
//	eng := engine.NewEngine(cache, logger).WithObserver(collector)
//	rec := recorder.NewRecorder(store, recCfg).WithObserver(collector)
//	http.Handle("/metrics", collector.Handler())
//
// # Cardinality
//
// Rule and artifact ids come from rulesets, which change over time. Each is
// capped by a CardinalityLimiter; ids beyond the cap are counted under
// "other".
package metrics
