package verdict

import (
	"sort"
	"time"
)

// MergeInput carries everything Merge needs to produce a Decision. The
// Verdicts slice may arrive in any completion order; Order fixes the
// registration order of the applicable evaluators for stable tie-breaks.
type MergeInput struct {
	CaseID          string
	CaseFingerprint string
	RegistryVersion string

	// Verdicts are the completed evaluators' outputs, any order.
	Verdicts []Verdict

	// Failures are the applicable evaluators that produced no verdict.
	Failures []Failure

	// Order lists applicable evaluator IDs in registration order.
	Order []string

	// DecidedAt stamps the decision. Supplied by the caller so runs
	// under a pinned clock are fully reproducible.
	DecidedAt time.Time
}

// Merge deterministically aggregates one case's verdicts into a Decision.
//
// The result is invariant under permutation of the Verdicts and Failures
// slices. All contributing verdicts are retained, ordered by descending
// severity then by registration order; failures are ordered by
// registration order.
func Merge(in MergeInput) *Decision {
	verdicts := make([]Verdict, len(in.Verdicts))
	copy(verdicts, in.Verdicts)
	failures := make([]Failure, len(in.Failures))
	copy(failures, in.Failures)

	rank := registrationRank(in.Order)
	for i := range verdicts {
		verdicts[i].Severity = clampSeverity(verdicts[i].Severity)
	}

	sort.SliceStable(verdicts, func(i, j int) bool {
		if verdicts[i].Severity != verdicts[j].Severity {
			return verdicts[i].Severity > verdicts[j].Severity
		}
		if ri, rj := rank.of(verdicts[i].Evaluator), rank.of(verdicts[j].Evaluator); ri != rj {
			return ri < rj
		}
		// Unregistered evaluators share a rank; fall back to the ID so
		// every permutation of the input still sorts identically.
		return verdicts[i].Evaluator < verdicts[j].Evaluator
	})
	sort.SliceStable(failures, func(i, j int) bool {
		if ri, rj := rank.of(failures[i].Evaluator), rank.of(failures[j].Evaluator); ri != rj {
			return ri < rj
		}
		return failures[i].Evaluator < failures[j].Evaluator
	})

	outcome, escalation := resolve(verdicts, failures)

	d := &Decision{
		CaseID:           in.CaseID,
		CaseFingerprint:  in.CaseFingerprint,
		RegistryVersion:  in.RegistryVersion,
		Outcome:          outcome,
		EscalationTarget: escalation,
		Verdicts:         verdicts,
		Failures:         failures,
		DecidedAt:        in.DecidedAt,
	}
	d.ID = d.digest()
	return d
}

// resolve applies the merge precedence: BLOCK or missing verdict holds the
// case, otherwise WARN escalates, otherwise dispense.
func resolve(verdicts []Verdict, failures []Failure) (DecisionOutcome, Escalation) {
	anyBlock := false
	anyWarn := false
	for _, v := range verdicts {
		switch v.Outcome {
		case Block:
			anyBlock = true
		case Warn:
			anyWarn = true
		}
	}

	// A failed evaluator is BLOCK-equivalent: unknown is never safe.
	if anyBlock || len(failures) > 0 {
		return Hold, EscalatePharmacist
	}
	if anyWarn {
		return Escalate, EscalateTech
	}
	return Dispense, EscalateNone
}

func clampSeverity(s int) int {
	if s < MinSeverity {
		return MinSeverity
	}
	if s > MaxSeverity {
		return MaxSeverity
	}
	return s
}

// registrationOrder maps evaluator IDs to their registration index.
// Unknown evaluators sort after all registered ones.
type registrationOrder map[string]int

func registrationRank(order []string) registrationOrder {
	r := make(registrationOrder, len(order))
	for i, id := range order {
		r[id] = i
	}
	return r
}

func (r registrationOrder) of(id string) int {
	if i, ok := r[id]; ok {
		return i
	}
	return len(r)
}
