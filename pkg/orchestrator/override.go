package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"rxsentinel/arbiter/pkg/ledger"
	"rxsentinel/arbiter/pkg/telemetry/tracing"
	"rxsentinel/arbiter/pkg/verdict"
)

// RecordOverride appends an override entry for a previously recorded
// decision. The decision itself is immutable; the override is a new ledger
// entry that references it, carrying who acted, the overriding outcome,
// and the rationale. Every field is required: an override without an actor
// or a rationale is a hole in the audit trail.
//
// The append uses the same retry budget as the decision write, so a
// recorded override is durable under the same guarantee.
func (o *Orchestrator) RecordOverride(ctx context.Context, caseID, decisionID, actor string, outcome verdict.DecisionOutcome, rationale string) (*ledger.Entry, error) {
	ctx, span := o.startSpan(ctx, "orchestrator.record_override")
	defer span.End()

	if err := validateOverride(caseID, decisionID, actor, outcome, rationale); err != nil {
		tracing.SetError(span, err)
		return nil, err
	}
	tracing.SetCaseAttributes(span, caseID, "")
	tracing.SetActorAttribute(span, actor)

	payload, err := json.Marshal(OverridePayload{
		DecisionID:   decisionID,
		Actor:        actor,
		Outcome:      outcome,
		Rationale:    rationale,
		OverriddenAt: o.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode override payload: %w", err)
	}

	entries, err := o.appendWithRetry(ctx, caseID, ledger.KindOverride, []ledger.Draft{{
		CaseID:  caseID,
		Kind:    ledger.KindOverride,
		Payload: payload,
	}})
	if err != nil {
		tracing.SetError(span, err)
		return nil, err
	}
	entry := &entries[0]

	o.log.InfoContext(ctx, "override recorded",
		"case_id", caseID,
		"decision_id", decisionID,
		"actor", actor,
		"outcome", outcome,
		"sequence", entry.Sequence,
	)
	if o.metrics != nil {
		o.metrics.RecordOverride(string(outcome))
	}
	return entry, nil
}

func validateOverride(caseID, decisionID, actor string, outcome verdict.DecisionOutcome, rationale string) error {
	switch {
	case caseID == "":
		return fmt.Errorf("%w: case_id is required", ErrInvalidOverride)
	case decisionID == "":
		return fmt.Errorf("%w: decision_id is required", ErrInvalidOverride)
	case actor == "":
		return fmt.Errorf("%w: actor is required", ErrInvalidOverride)
	case rationale == "":
		return fmt.Errorf("%w: rationale is required", ErrInvalidOverride)
	}
	switch outcome {
	case verdict.Dispense, verdict.Hold:
		return nil
	default:
		return fmt.Errorf("%w: outcome must be %s or %s", ErrInvalidOverride, verdict.Dispense, verdict.Hold)
	}
}
