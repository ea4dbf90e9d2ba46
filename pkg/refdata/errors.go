package refdata

import "fmt"

// NotFoundError reports that the source of truth has no record for a key.
// It is a definitive answer, not a transient failure: evaluators turn it
// into a BLOCK verdict rather than a retryable error.
type NotFoundError struct {
	// Kind names the record kind: "license", "dea", "state-rules".
	Kind string

	// Key is the lookup key that had no record.
	Key string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("refdata: no %s record for %q", e.Kind, e.Key)
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(kind, key string) *NotFoundError {
	return &NotFoundError{Kind: kind, Key: key}
}

// LookupError reports that a reference-data backend failed or was
// unreachable. LookupErrors are transient: the orchestrator retries the
// affected evaluator once.
type LookupError struct {
	// Backend is the failing implementation ("memory", "sqlite").
	Backend string

	// Operation is the lookup that failed.
	Operation string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	return fmt.Sprintf("refdata %s: %s failed: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying error.
func (e *LookupError) Unwrap() error {
	return e.Cause
}

// Transient marks lookup failures as retryable.
func (e *LookupError) Transient() bool {
	return true
}

// NewLookupError creates a LookupError.
func NewLookupError(backend, operation string, cause error) *LookupError {
	return &LookupError{Backend: backend, Operation: operation, Cause: cause}
}
