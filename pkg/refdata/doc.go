// Package refdata provides the reference-data lookups evaluators consult:
// prescriber license registries, DEA registrations, and per-state shipping
// rules.
//
// Reference sources are external dependencies with their own availability
// and latency characteristics. The contract evaluators rely on is narrow:
// lookups honor the caller's context deadline and report failure instead of
// hanging. Lookup failures are marked transient (see LookupError) so the
// orchestrator can retry the evaluator once; a NotFoundError is a
// definitive answer from the source of truth, not a transient failure.
//
// Two implementations are provided: MemorySource for tests and embedded
// deployments, and SQLiteSource backed by a local database file for
// single-instance production use.
package refdata
