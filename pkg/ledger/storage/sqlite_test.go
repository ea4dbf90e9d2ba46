package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"rxsentinel/arbiter/pkg/ledger"
)

func testSQLiteStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := NewSQLiteStore(&SQLiteConfig{
		Path:         path,
		MaxOpenConns: 2,
		MaxIdleConns: 1,
		WALMode:      true,
		BusyTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestSQLiteRoundTrip(t *testing.T) {
	s, _ := testSQLiteStore(t)
	ctx := context.Background()

	want := &ledger.Entry{
		Sequence:   1,
		EntryID:    "entry-1",
		CaseID:     "case-a",
		Kind:       ledger.KindDecision,
		Payload:    json.RawMessage(`{"outcome":"DISPENSE","nested":{"k":[1,2,3]}}`),
		PrevHash:   ledger.GenesisHash,
		Hash:       "deadbeef",
		RecordedAt: time.Date(2025, 3, 10, 9, 30, 15, 123456789, time.UTC),
	}
	if err := s.Append(ctx, want); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got, err := s.Head(ctx)
	if err != nil {
		t.Fatalf("Head() error = %v", err)
	}
	if got == nil {
		t.Fatal("Head() = nil")
	}
	if got.Sequence != want.Sequence || got.EntryID != want.EntryID ||
		got.CaseID != want.CaseID || got.Kind != want.Kind ||
		got.PrevHash != want.PrevHash || got.Hash != want.Hash {
		t.Errorf("Head() = %+v, want %+v", got, want)
	}
	if !bytes.Equal(got.Payload, want.Payload) {
		t.Errorf("Payload = %s, want %s (must survive byte-for-byte)", got.Payload, want.Payload)
	}
	if !got.RecordedAt.Equal(want.RecordedAt) {
		t.Errorf("RecordedAt = %v, want %v (nanosecond fidelity)", got.RecordedAt, want.RecordedAt)
	}
}

func TestSQLiteDuplicateSequenceRejected(t *testing.T) {
	s, _ := testSQLiteStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, entry(1, "case-a")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	dup := entry(1, "case-b")
	dup.EntryID = "entry-dup"
	if err := s.Append(ctx, dup); err == nil {
		t.Error("Append() with duplicate sequence expected error")
	}
}

func TestSQLiteScanAndForCase(t *testing.T) {
	s, _ := testSQLiteStore(t)
	ctx := context.Background()

	cases := []string{"a", "b", "a", "b"}
	for i, c := range cases {
		e := entry(uint64(i+1), c)
		e.EntryID = e.EntryID + string(rune('0'+i))
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	page, err := s.Scan(ctx, 1, 2)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(page) != 2 || page[0].Sequence != 2 || page[1].Sequence != 3 {
		t.Fatalf("Scan(1,2) sequences wrong: %+v", page)
	}

	forA, err := s.ForCase(ctx, "a", 0, 10)
	if err != nil {
		t.Fatalf("ForCase() error = %v", err)
	}
	if len(forA) != 2 || forA[0].Sequence != 1 || forA[1].Sequence != 3 {
		t.Fatalf("ForCase(a) sequences wrong: %+v", forA)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	s, path := testSQLiteStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, entry(1, "case-a")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewSQLiteStore(&SQLiteConfig{Path: path, MaxOpenConns: 1, MaxIdleConns: 1, BusyTimeout: time.Second})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	head, err := reopened.Head(ctx)
	if err != nil {
		t.Fatalf("Head() error = %v", err)
	}
	if head == nil || head.Sequence != 1 {
		t.Errorf("Head() after reopen = %+v, want sequence 1", head)
	}
}

func TestSQLiteAppendBatchAtomic(t *testing.T) {
	s, _ := testSQLiteStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, entry(1, "a")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// Sequence 1 collides, so the whole batch must roll back.
	bad := []*ledger.Entry{entry(2, "b"), entry(1, "c")}
	if err := s.AppendBatch(ctx, bad); err == nil {
		t.Fatal("AppendBatch() with a duplicate sequence must fail")
	}
	page, err := s.Scan(ctx, 0, 10)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("rolled-back batch left %d entries, want 1", len(page))
	}

	good := []*ledger.Entry{entry(2, "b"), entry(3, "c")}
	good[0].EntryID = "entry-b2"
	good[1].EntryID = "entry-c3"
	if err := s.AppendBatch(ctx, good); err != nil {
		t.Fatalf("AppendBatch() error = %v", err)
	}
	page, err = s.Scan(ctx, 0, 10)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("Scan() after batch = %d entries, want 3", len(page))
	}
}

func TestSQLiteQuery(t *testing.T) {
	s, _ := testSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	kinds := []string{ledger.KindEvaluationRun, ledger.KindDecision, ledger.KindDecision, ledger.KindOverride}
	cases := []string{"a", "a", "b", "a"}
	for i := range kinds {
		e := entry(uint64(i+1), cases[i])
		e.EntryID = e.EntryID + string(rune('0'+i))
		e.Kind = kinds[i]
		e.RecordedAt = base.Add(time.Duration(i) * time.Hour)
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	decisions, err := s.Query(ctx, ledger.Query{Kind: ledger.KindDecision})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(decisions) != 2 || decisions[0].Sequence != 2 || decisions[1].Sequence != 3 {
		t.Fatalf("kind filter wrong: %+v", decisions)
	}

	caseA, err := s.Query(ctx, ledger.Query{CaseID: "a", After: 1})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(caseA) != 2 || caseA[0].Sequence != 2 || caseA[1].Sequence != 4 {
		t.Fatalf("case filter wrong: %+v", caseA)
	}

	from := base.Add(time.Hour)
	to := base.Add(2 * time.Hour)
	ranged, err := s.Query(ctx, ledger.Query{From: &from, To: &to})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(ranged) != 2 || ranged[0].Sequence != 2 || ranged[1].Sequence != 3 {
		t.Fatalf("time range filter wrong: %+v", ranged)
	}

	limited, err := s.Query(ctx, ledger.Query{Limit: 2})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limit ignored, got %d entries", len(limited))
	}
}
