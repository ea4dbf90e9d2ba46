// Package health provides liveness and readiness probes for the verdict
// service.
//
// # Endpoints
//
//   - /health: liveness - the process is running
//   - /ready: readiness - the service can accept new cases
//   - /version: build information
//
// Liveness never runs component probes; a slow ledger must not get the
// process restarted. Readiness runs every registered probe concurrently
// under a per-check timeout and reports 503 when any component is
// unhealthy, so load balancers stop routing cases while the service
// recovers.
//
// # Component probes
//
// The server registers three probes at startup:
//
//   - ledger: the audit chain head is readable
//   - refdata: the reference-data backend answers lookups
//   - evaluators: the registry holds at least one evaluator
//
// Custom probes register the same way:
//
//	checker := health.New(&cfg.Telemetry.Health)
//	checker.RegisterCheck("ledger", health.LedgerCheck(led))
//	checker.RegisterCheck("refdata", health.RefdataCheck(src))
//	mux.HandleFunc(cfg.Telemetry.Health.ReadinessPath, checker.ReadinessHandler())
package health
