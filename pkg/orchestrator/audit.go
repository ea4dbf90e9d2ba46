package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rxsentinel/arbiter/pkg/ledger"
	"rxsentinel/arbiter/pkg/telemetry/tracing"
	"rxsentinel/arbiter/pkg/verdict"
)

// EvaluationRunPayload is the JSON payload of an evaluation-run ledger
// entry: one evaluator's verdict within a run, tied to the decision it
// contributed to.
type EvaluationRunPayload struct {
	DecisionID      string          `json:"decision_id"`
	RegistryVersion string          `json:"registry_version"`
	Verdict         verdict.Verdict `json:"verdict"`
}

// EvaluatorFailurePayload is the JSON payload of an evaluator-failure
// ledger entry. Failed evaluators are recorded, never silently dropped;
// the merge treated this failure as a missing verdict.
type EvaluatorFailurePayload struct {
	DecisionID      string          `json:"decision_id"`
	RegistryVersion string          `json:"registry_version"`
	Failure         verdict.Failure `json:"failure"`
}

// OverridePayload is the JSON payload of an override ledger entry. The
// original decision stays immutable; the override is a new entry
// referencing it.
type OverridePayload struct {
	DecisionID   string                  `json:"decision_id"`
	Actor        string                  `json:"actor"`
	Outcome      verdict.DecisionOutcome `json:"outcome"`
	Rationale    string                  `json:"rationale"`
	OverriddenAt time.Time               `json:"overridden_at"`
}

// appendRun commits the audit batch for a completed run: one
// evaluation-run entry per verdict, one evaluator-failure entry per
// failure, then the decision entry, all appended atomically so the chain
// never holds a decision without its contributing verdicts.
func (o *Orchestrator) appendRun(ctx context.Context, decision *verdict.Decision) error {
	drafts, err := buildRunDrafts(decision)
	if err != nil {
		return fmt.Errorf("failed to encode audit payloads: %w", err)
	}
	_, err = o.appendWithRetry(ctx, decision.CaseID, ledger.KindDecision, drafts)
	return err
}

// buildRunDrafts lays out the batch in the decision's own ordering, which
// Merge has already made deterministic.
func buildRunDrafts(decision *verdict.Decision) ([]ledger.Draft, error) {
	drafts := make([]ledger.Draft, 0, len(decision.Verdicts)+len(decision.Failures)+1)

	for _, v := range decision.Verdicts {
		payload, err := json.Marshal(EvaluationRunPayload{
			DecisionID:      decision.ID,
			RegistryVersion: decision.RegistryVersion,
			Verdict:         v,
		})
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, ledger.Draft{
			CaseID:  decision.CaseID,
			Kind:    ledger.KindEvaluationRun,
			Payload: payload,
		})
	}

	for _, f := range decision.Failures {
		payload, err := json.Marshal(EvaluatorFailurePayload{
			DecisionID:      decision.ID,
			RegistryVersion: decision.RegistryVersion,
			Failure:         f,
		})
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, ledger.Draft{
			CaseID:  decision.CaseID,
			Kind:    ledger.KindEvaluatorFailure,
			Payload: payload,
		})
	}

	payload, err := json.Marshal(decision)
	if err != nil {
		return nil, err
	}
	drafts = append(drafts, ledger.Draft{
		CaseID:  decision.CaseID,
		Kind:    ledger.KindDecision,
		Payload: payload,
	})

	return drafts, nil
}

// appendWithRetry appends a batch with exponential backoff. The write
// itself detaches from the caller's cancellation: a client hanging up
// after the evaluators finished must not leave the run unaudited. Backoff
// waits still honor the caller's context, so a cancelled caller stops the
// retry loop between attempts and the run surfaces as failed.
func (o *Orchestrator) appendWithRetry(ctx context.Context, caseID, kind string, drafts []ledger.Draft) ([]ledger.Entry, error) {
	writeCtx := context.WithoutCancel(ctx)

	attempts := o.writeAttempts()
	delay := o.writeBaseDelay()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		entries, err := o.ledger.AppendBatch(writeCtx, drafts)
		if err == nil {
			if o.metrics != nil {
				o.metrics.RecordLedgerAppend(kind, "ok", time.Since(start))
			}
			if attempt > 1 {
				o.log.InfoContext(ctx, "audit append succeeded after retry",
					"case_id", caseID,
					"attempt", attempt,
				)
			}
			if len(entries) > 0 {
				tracing.SetLedgerAttributes(tracing.SpanFromContext(ctx), kind, entries[len(entries)-1].Sequence)
			}
			return entries, nil
		}

		lastErr = err
		if o.metrics != nil {
			o.metrics.RecordLedgerAppend(kind, "error", time.Since(start))
		}
		o.log.WarnContext(ctx, "audit append failed",
			"case_id", caseID,
			"attempt", attempt,
			"attempts", attempts,
			"error", err,
		)
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			o.log.ErrorContext(ctx, "audit append abandoned, caller gone",
				"case_id", caseID,
				"attempt", attempt,
			)
			return nil, NewLedgerWriteError(caseID, attempt, lastErr)
		case <-time.After(delay):
		}

		delay *= 2
		if limit := o.writeMaxDelay(); delay > limit {
			delay = limit
		}
	}

	return nil, NewLedgerWriteError(caseID, attempts, lastErr)
}
