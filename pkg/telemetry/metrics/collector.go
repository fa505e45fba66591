package metrics

import (
	"strconv"
	"sync"
	"time"

	"keystone-mrm/arbiter/pkg/config"
	"keystone-mrm/arbiter/pkg/rules/ast"
	"keystone-mrm/arbiter/pkg/rules/engine"

	"github.com/prometheus/client_golang/prometheus"
)

// OverflowLabel replaces label values once a metric family reaches its
// cardinality limit.
const OverflowLabel = "other"

// DefaultMaxCardinality bounds the distinct rule and artifact ids tracked.
const DefaultMaxCardinality = 1000

// Collector owns the Prometheus registry for the service and records
// metrics from the engine, ruleset cache, decision recorder, pruner and
// HTTP layer. It implements engine.Observer, source.ReloadObserver,
// recorder.StoreObserver and retention.PruneObserver, so it is wired in
// with each component's WithObserver method.
//
// When the configuration has Enabled=false every method is a no-op.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	evaluationMetrics *EvaluationMetrics
	rulesetMetrics    *RulesetMetrics
	storeMetrics      *StoreMetrics
	requestMetrics    *RequestMetrics

	ruleLimiter     *CardinalityLimiter
	artifactLimiter *CardinalityLimiter
}

// NewCollector creates a collector registering into registry, or a fresh
// registry when nil. A nil cfg uses the defaults from the config package.
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	eng := engine.NewEngine(cache, logger).WithObserver(collector)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg == nil {
		cfg = &config.NewDefaultConfig().Telemetry.Metrics
	}

	// Copy so defaults never leak back into the caller's config.
	c := *cfg
	if c.Namespace == "" {
		c.Namespace = config.DefaultMetricsNamespace
	}
	if c.Subsystem == "" {
		c.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(c.EvaluationDurationBuckets) == 0 {
		c.EvaluationDurationBuckets = config.DefaultEvaluationDurationBuckets
	}

	return &Collector{
		config:            &c,
		registry:          registry,
		evaluationMetrics: NewEvaluationMetrics(&c, registry),
		rulesetMetrics:    NewRulesetMetrics(&c, registry),
		storeMetrics:      NewStoreMetrics(&c, registry),
		requestMetrics:    NewRequestMetrics(&c, registry),
		ruleLimiter:       NewCardinalityLimiter(DefaultMaxCardinality),
		artifactLimiter:   NewCardinalityLimiter(DefaultMaxCardinality),
	}
}

// Enabled reports whether metrics are being recorded.
func (c *Collector) Enabled() bool {
	return c.config.Enabled
}

// ObserveEvaluation records a completed evaluation.
func (c *Collector) ObserveEvaluation(ev *engine.Evaluation) {
	if !c.config.Enabled || ev == nil || ev.Result == nil {
		return
	}

	res := ev.Result
	em := c.evaluationMetrics
	em.evaluationsTotal.WithLabelValues(res.Tier, string(res.IsModel)).Inc()
	em.evaluationDuration.Observe(ev.Duration.Seconds())

	for _, tr := range res.TriggeredRules {
		em.ruleTriggersTotal.WithLabelValues(c.ruleLimiter.Label(tr.ID)).Inc()
	}
	for _, id := range res.MissingEvidence {
		em.missingEvidence.WithLabelValues(c.artifactLimiter.Label(id)).Inc()
	}
}

// RecordEvaluationError counts an evaluation that could not run, such as a
// request arriving before any ruleset loaded.
func (c *Collector) RecordEvaluationError(reason string) {
	if !c.config.Enabled {
		return
	}
	c.evaluationMetrics.evaluationErrors.WithLabelValues(reason).Inc()
}

// ObserveReload records a ruleset load attempt. rs is nil when it failed and
// the previous ruleset stays active.
func (c *Collector) ObserveReload(rs *ast.Ruleset, err error, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	rm := c.rulesetMetrics
	rm.reloadDuration.Observe(duration.Seconds())
	if err != nil || rs == nil {
		rm.reloadsTotal.WithLabelValues("error").Inc()
		return
	}

	rm.reloadsTotal.WithLabelValues("success").Inc()
	rm.info.Reset()
	rm.info.WithLabelValues(rs.Name, rs.Version, rs.Hash).Set(1)
	rm.rules.Set(float64(len(rs.Rules)))
	rm.lastReloadEpoch.SetToCurrentTime()
}

// ObserveStore records a decision storage operation.
func (c *Collector) ObserveStore(operation string, err error, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	c.storeMetrics.operationsTotal.WithLabelValues(operation, status).Inc()
	c.storeMetrics.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObservePrune records a retention run.
func (c *Collector) ObservePrune(deleted int64, err error) {
	if !c.config.Enabled {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	c.storeMetrics.operationsTotal.WithLabelValues("prune", status).Inc()
	if deleted > 0 {
		c.storeMetrics.prunedTotal.Add(float64(deleted))
	}
}

// SetRecorderPending reports the async recorder queue depth.
func (c *Collector) SetRecorderPending(n int) {
	if !c.config.Enabled {
		return
	}
	c.storeMetrics.pending.Set(float64(n))
}

// RequestStarted marks an HTTP request in flight. Call the returned function
// when the request completes.
func (c *Collector) RequestStarted() func() {
	if !c.config.Enabled {
		return func() {}
	}
	c.requestMetrics.inFlight.Inc()
	return c.requestMetrics.inFlight.Dec
}

// RecordRequest records a completed HTTP request. route is the matched route
// pattern, not the raw path, so ids never become label values.
func (c *Collector) RecordRequest(method, route string, code int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.requestMetrics.requestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.requestMetrics.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter caps the number of distinct values admitted for a label.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter admitting up to maxCardinality values.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value is already tracked or fits under the limit.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	_, exists := cl.current[value]
	cl.mu.RUnlock()
	if exists {
		return true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Label returns value when allowed and OverflowLabel otherwise.
func (cl *CardinalityLimiter) Label(value string) string {
	if cl.Allow(value) {
		return value
	}
	return OverflowLabel
}

// Count returns the number of tracked values.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
