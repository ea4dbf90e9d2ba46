package export

import (
	"context"
	"encoding/json"
	"io"

	"rxsentinel/arbiter/pkg/ledger"
)

// JSONExporter exports audit entries to JSON format.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes entries to the writer as a JSON array.
func (e *JSONExporter) Export(ctx context.Context, entries []ledger.Entry, w io.Writer) error {
	if len(entries) == 0 {
		_, err := w.Write([]byte("[]"))
		return err
	}

	var data []byte
	var err error
	if e.Pretty {
		data, err = json.MarshalIndent(entries, "", "  ")
	} else {
		data, err = json.Marshal(entries)
	}
	if err != nil {
		return ledger.NewExportError("json", 0, err)
	}

	if _, err := w.Write(data); err != nil {
		return ledger.NewExportError("json", 0, err)
	}
	return nil
}

// ExportStream writes entries from a channel to the writer as a JSON
// array, one entry at a time.
func (e *JSONExporter) ExportStream(ctx context.Context, entries <-chan ledger.Entry, w io.Writer) error {
	if _, err := w.Write([]byte("[")); err != nil {
		return ledger.NewExportError("json", 0, err)
	}

	first := true
	written := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case entry, ok := <-entries:
			if !ok {
				if _, err := w.Write([]byte("]")); err != nil {
					return ledger.NewExportError("json", written, err)
				}
				return nil
			}

			if !first {
				sep := ","
				if e.Pretty {
					sep = ",\n"
				}
				if _, err := w.Write([]byte(sep)); err != nil {
					return ledger.NewExportError("json", written, err)
				}
			}
			first = false

			data, err := e.serializeEntry(entry)
			if err != nil {
				return ledger.NewExportError("json", written, err)
			}
			if _, err := w.Write(data); err != nil {
				return ledger.NewExportError("json", written, err)
			}
			written++
		}
	}
}

func (e *JSONExporter) serializeEntry(entry ledger.Entry) ([]byte, error) {
	if e.Pretty {
		return json.MarshalIndent(entry, "  ", "  ")
	}
	return json.Marshal(entry)
}
