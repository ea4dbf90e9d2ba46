package evaluator

import (
	"context"

	"rxsentinel/arbiter/pkg/dispensing"
	"rxsentinel/arbiter/pkg/verdict"
)

// Evaluator is a single rule module producing one Verdict per applicable
// case.
//
// Evaluate is pure with respect to the Case: it must not mutate the
// snapshot and must not depend on other evaluators. It may consult
// reference data. It must honor ctx's deadline and return an error rather
// than hang; transient dependency failures should satisfy IsTransient so
// the orchestrator can retry once.
type Evaluator interface {
	// ID returns the evaluator's stable identity (e.g. "bud",
	// "refill-timing"). IDs appear in verdicts, decisions, and audit
	// entries.
	ID() string

	// Evaluate judges the case and returns exactly one verdict, or an
	// error when no judgment could be made.
	Evaluate(ctx context.Context, c *dispensing.Case) (verdict.Verdict, error)
}

// Predicate reports whether an evaluator applies to a case. Predicates
// inspect case attributes only: no evaluation, no reference-data calls.
type Predicate func(*dispensing.Case) bool

// Always is the predicate for evaluators that apply to every case.
func Always(*dispensing.Case) bool {
	return true
}
