// Package server exposes the verdict engine over HTTP.
//
// The API surface:
//
//	POST /v1/cases/evaluate       normalized case JSON -> audited decision
//	POST /v1/cases/{id}/override  record a pharmacist override
//	GET  /v1/audit/entries        paginated ledger reads (case_id, after, limit)
//	GET  /v1/audit/verify         hash chain verification report
//
// API routes sit behind optional API key authentication and a per-request
// deadline. Operational endpoints (liveness, readiness, metrics, version)
// are mounted at their configured paths outside the authenticated set so
// probes and scrapers need no credentials.
//
// Every response is JSON. Errors use a single envelope:
//
//	{"error": {"code": "malformed_case", "message": "...", "violations": [...]}}
//
// A 503 from the evaluate endpoint means the decision could not be
// durably audited and therefore was not made; the caller may retry the
// same case safely.
//
// Typical assembly:
//
//	srv, err := server.New(cfg, orch, led,
//	    server.WithLogger(log.Slog()),
//	    server.WithMetrics(collector),
//	    server.WithHealth(checker),
//	)
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx)
package server
