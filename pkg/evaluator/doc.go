// Package evaluator defines the rule-evaluator capability and the registry
// that selects which evaluators apply to a case.
//
// # Evaluator Contract
//
// An Evaluator is a pure function of the case: Evaluate must not mutate the
// Case, must not depend on the order other evaluators run in, and must not
// observe their verdicts. It may consult external reference data. It must
// complete or fail within the caller's context deadline; hanging past the
// deadline is a contract violation the orchestrator defends against but
// does not forgive.
//
// # Registry and Applicability
//
// Each registration pairs an evaluator with an applicability predicate.
// Predicates inspect Case attributes only (no evaluation, no I/O), so
// inapplicable evaluators are excluded cheaply and never appear as missing
// verdicts. Registration order is preserved: it provides the stable
// tie-break for equal-severity verdicts in the merge.
//
// Registries are configuration state: built once from the active parameter
// set, versioned, and treated as read-only afterwards. A Holder carries
// the active registry and supports swapping it atomically between
// orchestration runs. In-flight runs keep the snapshot they started with;
// no run ever observes a mixed registry.
package evaluator
