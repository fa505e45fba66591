// Package health implements liveness and readiness probes.
//
// Liveness answers as long as the process serves HTTP. Readiness runs the
// registered checks concurrently, each under its own timeout:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("ruleset", health.RulesetCheck(cache))
//	checker.RegisterCheck("storage", health.StorageCheck(store))
//	r.Get("/ready", checker.ReadinessHandler())
package health
