package evaluator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TimeoutError reports that an evaluator did not complete within its
// deadline. Timeouts are transient: the orchestrator retries the evaluator
// once with a shorter sub-deadline.
type TimeoutError struct {
	// Evaluator is the evaluator that timed out.
	Evaluator string

	// Deadline is the budget the evaluator was given.
	Deadline time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("evaluator %q did not complete within %s", e.Evaluator, e.Deadline)
}

// Transient marks timeouts as retryable.
func (e *TimeoutError) Transient() bool {
	return true
}

// NewTimeoutError creates a TimeoutError.
func NewTimeoutError(evaluatorID string, deadline time.Duration) *TimeoutError {
	return &TimeoutError{Evaluator: evaluatorID, Deadline: deadline}
}

// FaultError reports an evaluator's internal failure: bad input, a panic,
// or a non-timeout dependency error. Faults are not retried; the failure
// surfaces to the merge as a missing verdict.
type FaultError struct {
	// Evaluator is the faulting evaluator.
	Evaluator string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *FaultError) Error() string {
	return fmt.Sprintf("evaluator %q fault: %v", e.Evaluator, e.Cause)
}

// Unwrap returns the underlying error.
func (e *FaultError) Unwrap() error {
	return e.Cause
}

// NewFaultError creates a FaultError.
func NewFaultError(evaluatorID string, cause error) *FaultError {
	return &FaultError{Evaluator: evaluatorID, Cause: cause}
}

// transienter is implemented by errors that represent retryable
// conditions, such as refdata lookup failures.
type transienter interface {
	Transient() bool
}

// IsTransient reports whether err represents a transient failure class:
// a deadline expiry or an error chain containing a Transient()-true error.
// Transient failures are retried once; everything else is a fault.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if t, ok := e.(transienter); ok && t.Transient() {
			return true
		}
	}
	return false
}
