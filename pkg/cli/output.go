package cli

import (
	"encoding/json"
	"io"
)

// OutputFormat names a command output format. Commands that emit
// machine-readable output accept one of these through --format.
type OutputFormat string

const (
	// FormatText is human-readable output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output. Only ledger export supports it; the
	// other commands print nested structures CSV cannot carry.
	FormatCSV OutputFormat = "csv"
)

// JSONFormatter renders command results as JSON.
type JSONFormatter struct {
	Indent bool
}

// Format returns data rendered as JSON.
func (f *JSONFormatter) Format(data any) ([]byte, error) {
	if f.Indent {
		return json.MarshalIndent(data, "", "  ")
	}
	return json.Marshal(data)
}

// FormatTo writes data as JSON to w.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}
