package verdict

import "fmt"

// Outcome is a single evaluator's judgment for one case.
type Outcome string

const (
	// Pass means the rule found no violation.
	Pass Outcome = "PASS"
	// Warn means a concern that routes to human triage but does not by
	// itself hold the dispense.
	Warn Outcome = "WARN"
	// Block means a violation that must hold the dispense.
	Block Outcome = "BLOCK"
)

// Valid reports whether o is a recognized outcome.
func (o Outcome) Valid() bool {
	switch o {
	case Pass, Warn, Block:
		return true
	}
	return false
}

// Severity bounds for verdicts. Merge clamps out-of-range values.
const (
	MinSeverity = 0
	MaxSeverity = 100
)

// Verdict is the output of one evaluator for one case. An evaluator emits
// at most one Verdict per case; a missing Verdict is represented as a
// Failure, never as a zero Verdict.
type Verdict struct {
	// Evaluator is the emitting evaluator's identity.
	Evaluator string `json:"evaluator"`

	// Outcome is PASS, WARN, or BLOCK.
	Outcome Outcome `json:"outcome"`

	// ReasonCode is the machine-readable reason (e.g. "REFILL_TOO_SOON").
	ReasonCode string `json:"reason_code"`

	// Explanation is the human-readable reason shown to reviewers.
	Explanation string `json:"explanation"`

	// Severity scores the finding from 0 (informational) to 100.
	Severity int `json:"severity"`
}

// FailureClass categorizes why an evaluator produced no verdict.
type FailureClass string

const (
	// FailureTimeout marks an evaluator that did not complete within its
	// deadline.
	FailureTimeout FailureClass = "timeout"
	// FailureFault marks an evaluator that raised an internal error.
	FailureFault FailureClass = "fault"
)

// Failure records an applicable evaluator that produced no Verdict. It
// feeds the merge policy's unknown-is-never-safe rule and gives reviewers
// a human-readable account of the failure.
type Failure struct {
	// Evaluator is the failed evaluator's identity.
	Evaluator string `json:"evaluator"`

	// Class is the failure category.
	Class FailureClass `json:"class"`

	// Message is the human-readable failure description.
	Message string `json:"message"`

	// Retried is true when the failure persisted through a retry.
	Retried bool `json:"retried,omitempty"`
}

// String renders a verdict for logs and summaries.
func (v Verdict) String() string {
	return fmt.Sprintf("[%s] %s %s (severity %d): %s",
		v.Outcome, v.Evaluator, v.ReasonCode, v.Severity, v.Explanation)
}
