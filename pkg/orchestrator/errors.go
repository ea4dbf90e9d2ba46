package orchestrator

import (
	"errors"
	"fmt"
)

// ErrInvalidOverride marks an override request that failed validation
// before anything was written. Test with errors.Is.
var ErrInvalidOverride = errors.New("invalid override")

// LedgerWriteError reports that the audit batch for a completed run could
// not be durably appended within the retry budget. The decision it covers
// was computed but was never made: Run does not expose an unaudited
// decision, and the caller must treat the run as failed.
type LedgerWriteError struct {
	// CaseID identifies the case whose audit write failed.
	CaseID string

	// Attempts is the number of append attempts made before giving up.
	Attempts int

	// Cause is the error from the last attempt.
	Cause error
}

// Error implements the error interface.
func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("audit append for case %q failed after %d attempts: %v", e.CaseID, e.Attempts, e.Cause)
}

// Unwrap returns the last append error.
func (e *LedgerWriteError) Unwrap() error {
	return e.Cause
}

// NewLedgerWriteError creates a LedgerWriteError.
func NewLedgerWriteError(caseID string, attempts int, cause error) *LedgerWriteError {
	return &LedgerWriteError{CaseID: caseID, Attempts: attempts, Cause: cause}
}
