package main

import (
	"bytes"
	"strings"
	"testing"

	"rxsentinel/arbiter/pkg/verdict"
)

func TestPrintDecisionDispense(t *testing.T) {
	d := &verdict.Decision{
		ID:               "abc123",
		CaseID:           "CASE-3001",
		RegistryVersion:  "v1-8-d41d8cd9",
		Outcome:          verdict.Dispense,
		EscalationTarget: verdict.EscalateNone,
		Verdicts: []verdict.Verdict{
			{Evaluator: "license", Outcome: verdict.Pass, ReasonCode: "LICENSE_OK", Explanation: "license verified 12 days ago", Severity: 0},
			{Evaluator: "refill", Outcome: verdict.Pass, ReasonCode: "REFILL_OK", Explanation: "refill 2 of 5", Severity: 0},
		},
	}

	var buf bytes.Buffer
	printDecision(&buf, d)
	out := buf.String()

	for _, want := range []string{
		"Decision: DISPENSE",
		"Case: CASE-3001",
		"Decision ID: abc123",
		"Registry: v1-8-d41d8cd9",
		"Verdicts:",
		"[PASS] license LICENSE_OK (severity 0): license verified 12 days ago",
		"DISPENSE: all checks passed (case CASE-3001)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}

	if strings.Contains(out, "Escalation:") {
		t.Error("escalation line printed for a DISPENSE decision")
	}
	if strings.Contains(out, "Evaluator failures:") {
		t.Error("failures section printed with no failures")
	}
}

func TestPrintDecisionHoldWithFailure(t *testing.T) {
	d := &verdict.Decision{
		ID:               "def456",
		CaseID:           "CASE-3002",
		RegistryVersion:  "v1-8-d41d8cd9",
		Outcome:          verdict.Hold,
		EscalationTarget: verdict.EscalatePharmacist,
		Verdicts: []verdict.Verdict{
			{Evaluator: "dea", Outcome: verdict.Block, ReasonCode: "DEA_EXPIRED", Explanation: "DEA registration expired", Severity: 95},
		},
		Failures: []verdict.Failure{
			{Evaluator: "bud", Class: verdict.FailureTimeout, Message: "evaluation exceeded 2s", Retried: true},
		},
	}

	var buf bytes.Buffer
	printDecision(&buf, d)
	out := buf.String()

	for _, want := range []string{
		"Decision: HOLD",
		"Escalation: pharmacist-review",
		"[BLOCK] dea DEA_EXPIRED (severity 95): DEA registration expired",
		"Evaluator failures:",
		"bud (timeout): evaluation exceeded 2s",
		"HOLD: pharmacist review required (case CASE-3002)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}
