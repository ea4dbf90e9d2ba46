package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"rxsentinel/arbiter/pkg/ledger"
	"rxsentinel/arbiter/pkg/ledger/storage"
)

func sampleEntries(n int) []ledger.Entry {
	out := make([]ledger.Entry, n)
	for i := range out {
		out[i] = ledger.Entry{
			Sequence:   uint64(i + 1),
			EntryID:    fmt.Sprintf("entry-%d", i+1),
			CaseID:     "case-a",
			Kind:       ledger.KindDecision,
			Payload:    json.RawMessage(fmt.Sprintf(`{"n":%d,"text":"with, comma and \"quotes\""}`, i+1)),
			PrevHash:   ledger.GenesisHash,
			Hash:       fmt.Sprintf("hash-%d", i+1),
			RecordedAt: time.Date(2025, 3, 10, 9, 0, i, 0, time.UTC),
		}
	}
	return out
}

func TestJSONExport(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONExporter(false).Export(context.Background(), sampleEntries(2), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var got []ledger.Entry
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(got) != 2 || got[0].Sequence != 1 || got[1].Sequence != 2 {
		t.Errorf("round-trip = %+v", got)
	}
	if string(got[0].Payload) != `{"n":1,"text":"with, comma and \"quotes\""}` {
		t.Errorf("payload altered: %s", got[0].Payload)
	}
}

func TestJSONExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONExporter(false).Export(context.Background(), nil, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if buf.String() != "[]" {
		t.Errorf("empty export = %q, want []", buf.String())
	}
}

func TestCSVExport(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(true).Export(context.Background(), sampleEntries(2), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "sequence" || rows[0][7] != "payload" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "1" || rows[1][3] != ledger.KindDecision {
		t.Errorf("first row = %v", rows[1])
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(rows[1][7]), &payload); err != nil {
		t.Errorf("payload column must survive CSV quoting: %v", err)
	}
}

func TestCSVExportNoHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(false).Export(context.Background(), sampleEntries(1), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("rows = %d, want 1", len(rows))
	}
}

func TestStreamExport(t *testing.T) {
	store := storage.NewMemoryStore()
	l := ledger.New(store)
	ctx := context.Background()

	for i := 1; i <= 7; i++ {
		_, err := l.Append(ctx, ledger.Draft{
			CaseID:  "case-a",
			Kind:    ledger.KindDecision,
			Payload: json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)),
		})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	entries, errs := Stream(ctx, l, 3)
	var buf bytes.Buffer
	if err := NewJSONExporter(false).ExportStream(ctx, entries, &buf); err != nil {
		t.Fatalf("ExportStream() error = %v", err)
	}
	if err := <-errs; err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	var got []ledger.Entry
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(got) != 7 {
		t.Errorf("streamed %d entries, want 7", len(got))
	}
	for i, e := range got {
		if e.Sequence != uint64(i+1) {
			t.Errorf("entry %d out of order: sequence %d", i, e.Sequence)
		}
	}
}
