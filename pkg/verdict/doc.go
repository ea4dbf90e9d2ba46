// Package verdict defines evaluator verdicts, orchestration decisions, and
// the deterministic merge policy that folds one case's verdicts into a
// single decision.
//
// # Merge Policy
//
// Merge applies the following precedence, in order:
//
//  1. Any BLOCK verdict, or any failed (missing) evaluator, yields HOLD
//     with pharmacist-review escalation. A missing verdict is treated as
//     BLOCK-equivalent: unknown is never safe.
//  2. Otherwise at least one WARN yields ESCALATE with tech-notify
//     escalation, so technicians triage before dispensing.
//  3. Otherwise (all PASS) the decision is DISPENSE with no escalation.
//
// The merge is order-independent: evaluators complete concurrently in
// arbitrary order, and Merge produces the identical Decision for every
// permutation of its verdict slice. Contributing verdicts are retained in
// full, so every violated rule stays visible to the reviewer, ordered by
// descending severity and then by evaluator registration order.
//
// # Determinism
//
// A Decision's ID is the SHA-256 digest of its canonical content (case
// fingerprint, registry version, outcome, escalation, ordered verdicts and
// failures). Re-running an identical case snapshot under an identical
// registry version therefore reproduces the identical Decision.
package verdict
