// Arbiter is a compliance orchestration and verdict engine for pharmacy
// dispensing.
//
// It evaluates immutable dispensing-case snapshots against a registry of
// compliance evaluators (prescriber licensure, DEA registration, state
// shipping rules, refill timing, cumulative dosage, beyond-use dating,
// compounding, documentation) and merges their verdicts into a single
// auditable decision: dispense, hold, or escalate. Every run is recorded
// to a hash-chained audit ledger before the decision is released.
//
// Usage:
//
//	# Start the HTTP service with default configuration
//	arbiter run
//
//	# Start with a custom configuration file
//	arbiter run --config /etc/arbiter/config.yaml
//
//	# Evaluate one case file; the exit code carries the outcome
//	arbiter evaluate --file case.json
//
//	# Validate a rule parameter file
//	arbiter lint --file params.yaml
//
//	# Verify the audit ledger hash chain
//	arbiter verify-ledger
//
//	# Export audit entries
//	arbiter export --format csv --output audit.csv
//
//	# Show version information
//	arbiter version
package main

func main() {
	Execute()
}
