package verdict

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DecisionOutcome is the orchestration's final disposition of a case.
type DecisionOutcome string

const (
	// Dispense releases the fill.
	Dispense DecisionOutcome = "DISPENSE"
	// Hold stops the fill pending pharmacist review.
	Hold DecisionOutcome = "HOLD"
	// Escalate releases to technician triage before dispensing.
	Escalate DecisionOutcome = "ESCALATE"
)

// Escalation names the human workflow a decision routes to.
type Escalation string

const (
	// EscalateNone means no human involvement is required.
	EscalateNone Escalation = "none"
	// EscalatePharmacist routes the case to pharmacist review.
	EscalatePharmacist Escalation = "pharmacist-review"
	// EscalateTech notifies technicians to triage before dispensing.
	EscalateTech Escalation = "tech-notify"
)

// Decision is the orchestration's output for one case snapshot. Decisions
// are immutable once appended to the audit ledger; a human override is a
// new ledger entry referencing the original decision's ID, never a
// mutation of it.
type Decision struct {
	// ID is the SHA-256 digest of the decision's canonical content,
	// excluding DecidedAt. Identical snapshot plus identical registry
	// version reproduces the identical ID.
	ID string `json:"id"`

	// CaseID is the external case identifier.
	CaseID string `json:"case_id"`

	// CaseFingerprint pins the exact snapshot this decision was made
	// against.
	CaseFingerprint string `json:"case_fingerprint"`

	// RegistryVersion pins the evaluator configuration in force.
	RegistryVersion string `json:"registry_version"`

	// Outcome is DISPENSE, HOLD, or ESCALATE.
	Outcome DecisionOutcome `json:"outcome"`

	// EscalationTarget names the workflow the decision routes to.
	EscalationTarget Escalation `json:"escalation_target"`

	// Verdicts holds every contributing verdict, ordered by descending
	// severity and then by evaluator registration order.
	Verdicts []Verdict `json:"verdicts"`

	// Failures holds every applicable evaluator that produced no
	// verdict, in registration order.
	Failures []Failure `json:"failures,omitempty"`

	// DecidedAt is the decision timestamp.
	DecidedAt time.Time `json:"decided_at"`
}

// decisionDigestContent is the hashed subset of a Decision. DecidedAt is
// excluded so identical inputs reproduce identical IDs across runs.
type decisionDigestContent struct {
	CaseID           string          `json:"case_id"`
	CaseFingerprint  string          `json:"case_fingerprint"`
	RegistryVersion  string          `json:"registry_version"`
	Outcome          DecisionOutcome `json:"outcome"`
	EscalationTarget Escalation      `json:"escalation_target"`
	Verdicts         []Verdict       `json:"verdicts"`
	Failures         []Failure       `json:"failures"`
}

func (d *Decision) digest() string {
	content := decisionDigestContent{
		CaseID:           d.CaseID,
		CaseFingerprint:  d.CaseFingerprint,
		RegistryVersion:  d.RegistryVersion,
		Outcome:          d.Outcome,
		EscalationTarget: d.EscalationTarget,
		Verdicts:         d.Verdicts,
		Failures:         d.Failures,
	}
	data, err := json.Marshal(content)
	if err != nil {
		panic("verdict: decision digest: " + err.Error())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Blocked reports whether the decision holds the dispense.
func (d *Decision) Blocked() bool {
	return d.Outcome == Hold
}

// ReasonSummary renders the human-readable account of the decision: one
// line per contributing verdict and one per failed evaluator. The summary
// is deterministic for a given decision.
func (d *Decision) ReasonSummary() string {
	var b strings.Builder

	switch d.Outcome {
	case Hold:
		b.WriteString("HOLD: pharmacist review required")
	case Escalate:
		b.WriteString("ESCALATE: technician triage before dispensing")
	case Dispense:
		b.WriteString("DISPENSE: all checks passed")
	default:
		b.WriteString(string(d.Outcome))
	}
	fmt.Fprintf(&b, " (case %s)\n", d.CaseID)

	for _, v := range d.Verdicts {
		fmt.Fprintf(&b, "  - %s\n", v.String())
	}
	for _, f := range d.Failures {
		fmt.Fprintf(&b, "  - [FAILED] %s (%s): %s\n", f.Evaluator, f.Class, f.Message)
	}

	return b.String()
}
