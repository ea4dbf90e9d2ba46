package orchestrator_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"rxsentinel/arbiter/pkg/config"
	"rxsentinel/arbiter/pkg/ledger"
	"rxsentinel/arbiter/pkg/ledger/storage"
	"rxsentinel/arbiter/pkg/orchestrator"
	"rxsentinel/arbiter/pkg/verdict"
)

func TestRecordOverride(t *testing.T) {
	reg := testRegistry(t, blockStub("license", 90))
	o, led := newTestOrchestrator(t, config.OrchestratorConfig{}, reg, nil)
	ctx := context.Background()

	d, err := o.Run(ctx, testCase())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if d.Outcome != verdict.Hold {
		t.Fatalf("Outcome = %s, want %s", d.Outcome, verdict.Hold)
	}

	entry, err := o.RecordOverride(ctx, d.CaseID, d.ID, "pharmacist-lin", verdict.Dispense, "license renewal verified by phone with the CA board")
	if err != nil {
		t.Fatalf("RecordOverride() error = %v", err)
	}
	if entry.Kind != ledger.KindOverride {
		t.Errorf("Kind = %s, want %s", entry.Kind, ledger.KindOverride)
	}
	if entry.CaseID != d.CaseID {
		t.Errorf("CaseID = %s, want %s", entry.CaseID, d.CaseID)
	}

	var p orchestrator.OverridePayload
	if err := json.Unmarshal(entry.Payload, &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.DecisionID != d.ID {
		t.Errorf("DecisionID = %q, want %q", p.DecisionID, d.ID)
	}
	if p.Actor != "pharmacist-lin" || p.Outcome != verdict.Dispense {
		t.Errorf("payload = %+v", p)
	}
	if p.Rationale == "" {
		t.Error("rationale must be recorded")
	}
	if !p.OverriddenAt.Equal(testClock) {
		t.Errorf("OverriddenAt = %v, want %v", p.OverriddenAt, testClock)
	}

	head, err := led.Head(ctx)
	if err != nil {
		t.Fatalf("Head() error = %v", err)
	}
	if head.Sequence != entry.Sequence {
		t.Errorf("override is not the chain head: %d vs %d", head.Sequence, entry.Sequence)
	}

	res, err := led.VerifyChain(ctx)
	if err != nil || !res.Intact {
		t.Errorf("VerifyChain() = %+v, %v, want intact", res, err)
	}
}

func TestRecordOverrideValidation(t *testing.T) {
	reg := testRegistry(t, passStub("license", 0))
	o, led := newTestOrchestrator(t, config.OrchestratorConfig{}, reg, nil)
	ctx := context.Background()

	tests := []struct {
		name       string
		caseID     string
		decisionID string
		actor      string
		outcome    verdict.DecisionOutcome
		rationale  string
	}{
		{name: "missing case id", decisionID: "abc", actor: "ph", outcome: verdict.Dispense, rationale: "r"},
		{name: "missing decision id", caseID: "CASE-1", actor: "ph", outcome: verdict.Dispense, rationale: "r"},
		{name: "missing actor", caseID: "CASE-1", decisionID: "abc", outcome: verdict.Dispense, rationale: "r"},
		{name: "missing rationale", caseID: "CASE-1", decisionID: "abc", actor: "ph", outcome: verdict.Dispense},
		{name: "escalate not an override outcome", caseID: "CASE-1", decisionID: "abc", actor: "ph", outcome: verdict.Escalate, rationale: "r"},
		{name: "empty outcome", caseID: "CASE-1", decisionID: "abc", actor: "ph", rationale: "r"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.RecordOverride(ctx, tt.caseID, tt.decisionID, tt.actor, tt.outcome, tt.rationale)
			if !errors.Is(err, orchestrator.ErrInvalidOverride) {
				t.Errorf("error = %v, want ErrInvalidOverride", err)
			}
		})
	}

	head, err := led.Head(ctx)
	if err != nil {
		t.Fatalf("Head() error = %v", err)
	}
	if head != nil {
		t.Error("rejected overrides must not reach the ledger")
	}
}

func TestRecordOverrideLedgerFailure(t *testing.T) {
	store := &flakyStore{Store: storage.NewMemoryStore(), failures: 100}
	reg := testRegistry(t, passStub("license", 0))
	o, _ := newTestOrchestrator(t, fastWriteConfig(), reg, store)

	_, err := o.RecordOverride(context.Background(), "CASE-2001", "deadbeef", "pharmacist-lin", verdict.Hold, "confirming the hold after chart review")
	var writeErr *orchestrator.LedgerWriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("error = %v, want *LedgerWriteError", err)
	}
	if writeErr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", writeErr.Attempts)
	}
}
