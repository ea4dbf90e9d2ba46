package dispensing

import (
	"fmt"
	"strings"
)

// MalformedCaseError reports that a Case failed structural validation. The
// run is rejected before orchestration begins: no evaluators are invoked
// and no Decision is produced, which keeps a malformed submission distinct
// from a HOLD decision on a well-formed one.
type MalformedCaseError struct {
	// CaseID is the external case identifier, possibly empty when the
	// identifier itself is missing.
	CaseID string

	// Violations lists every failed structural check, not just the first.
	Violations []string
}

// Error implements the error interface.
func (e *MalformedCaseError) Error() string {
	return fmt.Sprintf("malformed case %q: %s", e.CaseID, strings.Join(e.Violations, "; "))
}

// NewMalformedCaseError creates a MalformedCaseError for the given case.
func NewMalformedCaseError(caseID string, violations []string) *MalformedCaseError {
	return &MalformedCaseError{CaseID: caseID, Violations: violations}
}
