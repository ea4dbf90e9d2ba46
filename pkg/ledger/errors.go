package ledger

import "fmt"

// DraftError reports an invalid draft rejected before sequencing.
type DraftError struct {
	Field  string
	Reason string
}

func (e *DraftError) Error() string {
	return fmt.Sprintf("ledger: invalid draft: %s %s", e.Field, e.Reason)
}

// NewDraftError creates a DraftError.
func NewDraftError(field, reason string) *DraftError {
	return &DraftError{Field: field, Reason: reason}
}

// StoreError wraps a storage failure with the backend and operation that
// hit it.
type StoreError struct {
	Backend   string
	Operation string
	Cause     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("ledger: %s %s: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Transient marks store failures as retryable; the backing store may
// recover between attempts.
func (e *StoreError) Transient() bool {
	return true
}

// NewStoreError creates a StoreError.
func NewStoreError(backend, operation string, cause error) *StoreError {
	return &StoreError{Backend: backend, Operation: operation, Cause: cause}
}

// ExportError reports a failed export with the format and how many
// entries had been written.
type ExportError struct {
	Format  string
	Written int
	Cause   error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("ledger: export %s after %d entries: %v", e.Format, e.Written, e.Cause)
}

func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates an ExportError.
func NewExportError(format string, written int, cause error) *ExportError {
	return &ExportError{Format: format, Written: written, Cause: cause}
}
