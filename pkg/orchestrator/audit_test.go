package orchestrator_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"rxsentinel/arbiter/pkg/config"
	"rxsentinel/arbiter/pkg/ledger"
	"rxsentinel/arbiter/pkg/ledger/storage"
	"rxsentinel/arbiter/pkg/orchestrator"
	"rxsentinel/arbiter/pkg/verdict"
)

// flakyStore fails the first n AppendBatch calls, then defers to the
// wrapped store.
type flakyStore struct {
	ledger.Store
	failures int
	calls    atomic.Int32
}

func (s *flakyStore) AppendBatch(ctx context.Context, entries []*ledger.Entry) error {
	if int(s.calls.Add(1)) <= s.failures {
		return errors.New("disk I/O error")
	}
	return s.Store.AppendBatch(ctx, entries)
}

func fastWriteConfig() config.OrchestratorConfig {
	return config.OrchestratorConfig{
		LedgerWrite: config.LedgerWriteConfig{
			Attempts:  3,
			BaseDelay: time.Millisecond,
			MaxDelay:  5 * time.Millisecond,
		},
	}
}

func TestRunRetriesAuditAppend(t *testing.T) {
	store := &flakyStore{Store: storage.NewMemoryStore(), failures: 2}
	reg := testRegistry(t, passStub("license", 0))
	o, led := newTestOrchestrator(t, fastWriteConfig(), reg, store)
	ctx := context.Background()

	d, err := o.Run(ctx, testCase())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := store.calls.Load(); got != 3 {
		t.Errorf("append attempts = %d, want 3", got)
	}

	entries, err := led.Entries(ctx, 0, 10)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ledger holds %d entries, want 2", len(entries))
	}
	if entries[len(entries)-1].Kind != ledger.KindDecision {
		t.Errorf("last entry kind = %s, want %s", entries[len(entries)-1].Kind, ledger.KindDecision)
	}

	res, err := led.VerifyChain(ctx)
	if err != nil || !res.Intact {
		t.Errorf("VerifyChain() = %+v, %v, want intact after retried append", res, err)
	}
	if d.Outcome != verdict.Dispense {
		t.Errorf("Outcome = %s, want %s", d.Outcome, verdict.Dispense)
	}
}

func TestRunSurfacesLedgerWriteError(t *testing.T) {
	store := &flakyStore{Store: storage.NewMemoryStore(), failures: 100}
	reg := testRegistry(t, passStub("license", 0))
	o, led := newTestOrchestrator(t, fastWriteConfig(), reg, store)
	ctx := context.Background()

	d, err := o.Run(ctx, testCase())
	if d != nil {
		t.Fatal("Run() must not expose an unaudited decision")
	}
	var writeErr *orchestrator.LedgerWriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("error = %v, want *LedgerWriteError", err)
	}
	if writeErr.CaseID != "CASE-2001" || writeErr.Attempts != 3 {
		t.Errorf("LedgerWriteError = %+v, want case CASE-2001 after 3 attempts", writeErr)
	}
	if writeErr.Unwrap() == nil {
		t.Error("Unwrap() = nil, want the last append error")
	}
	if got := store.calls.Load(); got != 3 {
		t.Errorf("append attempts = %d, want 3", got)
	}

	head, err := led.Head(ctx)
	if err != nil {
		t.Fatalf("Head() error = %v", err)
	}
	if head != nil {
		t.Error("failed run must leave the ledger empty")
	}
}

func TestRunAbandonsRetryWhenCallerGone(t *testing.T) {
	store := &flakyStore{Store: storage.NewMemoryStore(), failures: 100}
	reg := testRegistry(t, passStub("license", 0))
	cfg := config.OrchestratorConfig{
		LedgerWrite: config.LedgerWriteConfig{
			Attempts:  3,
			BaseDelay: time.Hour,
			MaxDelay:  time.Hour,
		},
	}
	o, _ := newTestOrchestrator(t, cfg, reg, store)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// Give the first append attempt time to fail, then hang up.
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := o.Run(ctx, testCase())
	elapsed := time.Since(start)

	var writeErr *orchestrator.LedgerWriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("error = %v, want *LedgerWriteError", err)
	}
	if writeErr.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1 before abandoning", writeErr.Attempts)
	}
	if elapsed > 5*time.Second {
		t.Errorf("Run() took %v, should stop backing off once the caller is gone", elapsed)
	}
	if got := store.calls.Load(); got != 1 {
		t.Errorf("append attempts = %d, want 1 before abandoning", got)
	}
}

func TestRunAuditsDespiteCancelledCaller(t *testing.T) {
	reg := testRegistry(t, passStub("license", 0))
	o, led := newTestOrchestrator(t, config.OrchestratorConfig{}, reg, nil)

	// Cancelled before the run starts: evaluation contexts inherit the
	// cancellation, but the audit write itself must still land.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := o.Run(ctx, testCase())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if d == nil {
		t.Fatal("Run() returned no decision")
	}

	// The evaluator may or may not have been marked failed depending on
	// when the cancellation was observed; either way the run is audited.
	head, err := led.Head(context.Background())
	if err != nil {
		t.Fatalf("Head() error = %v", err)
	}
	if head == nil || head.Kind != ledger.KindDecision {
		t.Errorf("head = %+v, want the decision entry recorded", head)
	}
}
