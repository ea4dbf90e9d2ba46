package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"rxsentinel/arbiter/pkg/ledger"
)

// CSVExporter exports audit entries to CSV format.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes entries to the writer in CSV format. The payload column
// carries the entry's JSON document as-is; csv quoting handles escaping.
func (e *CSVExporter) Export(ctx context.Context, entries []ledger.Entry, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return ledger.NewExportError("csv", 0, err)
		}
	}

	for i, entry := range entries {
		if err := writer.Write(entryToRow(entry)); err != nil {
			return ledger.NewExportError("csv", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return ledger.NewExportError("csv", len(entries), err)
	}
	return nil
}

// ExportStream writes entries from a channel to the writer in CSV
// format.
func (e *CSVExporter) ExportStream(ctx context.Context, entries <-chan ledger.Entry, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return ledger.NewExportError("csv", 0, err)
		}
	}

	written := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case entry, ok := <-entries:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return ledger.NewExportError("csv", written, err)
				}
				return nil
			}
			if err := writer.Write(entryToRow(entry)); err != nil {
				return ledger.NewExportError("csv", written, err)
			}
			written++
		}
	}
}

func headerRow() []string {
	return []string{"sequence", "entry_id", "case_id", "kind", "recorded_at", "prev_hash", "hash", "payload"}
}

func entryToRow(e ledger.Entry) []string {
	return []string{
		strconv.FormatUint(e.Sequence, 10),
		e.EntryID,
		e.CaseID,
		e.Kind,
		e.RecordedAt.UTC().Format(time.RFC3339Nano),
		e.PrevHash,
		e.Hash,
		string(e.Payload),
	}
}
