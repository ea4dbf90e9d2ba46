package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxsentinel/arbiter/pkg/evaluator"
	"rxsentinel/arbiter/pkg/ledger"
	"rxsentinel/arbiter/pkg/ledger/storage"
	"rxsentinel/arbiter/pkg/server/api"
	"rxsentinel/arbiter/pkg/verdict"
)

func TestEvaluate_Dispense(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{passStub("license"), passStub("dosage")}, nil, nil)

	w := postJSON(t, f.h, "/v1/cases/evaluate", testCase())
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp api.EvaluateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Decision)

	d := resp.Decision
	assert.Equal(t, verdict.Dispense, d.Outcome)
	assert.Equal(t, verdict.EscalateNone, d.EscalationTarget)
	assert.Equal(t, "CASE-2001", d.CaseID)
	assert.Len(t, d.Verdicts, 2)
	assert.Empty(t, d.Failures)
	assert.NotEmpty(t, resp.ReasonSummary)

	// The run is on the ledger before the response goes out: one entry
	// per verdict plus the decision itself.
	entries, err := f.led.Entries(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, ledger.KindEvaluationRun, entries[0].Kind)
	assert.Equal(t, ledger.KindDecision, entries[2].Kind)
}

func TestEvaluate_BlockHolds(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{passStub("dosage"), blockStub("license")}, nil, nil)

	d := evaluateCase(t, f.h, testCase())
	assert.Equal(t, verdict.Hold, d.Outcome)
	assert.Equal(t, verdict.EscalatePharmacist, d.EscalationTarget)
	require.NotEmpty(t, d.Verdicts)
	assert.Equal(t, "LICENSE_EXPIRED", d.Verdicts[0].ReasonCode, "blocking verdict sorts first")
}

func TestEvaluate_WarnEscalates(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{passStub("license"), warnStub("dosage")}, nil, nil)

	d := evaluateCase(t, f.h, testCase())
	assert.Equal(t, verdict.Escalate, d.Outcome)
	assert.Equal(t, verdict.EscalateTech, d.EscalationTarget)
}

func TestEvaluate_MalformedCase(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{passStub("license")}, nil, nil)

	c := testCase()
	c.CaseID = ""
	c.RxNumber = ""
	w := postJSON(t, f.h, "/v1/cases/evaluate", c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeError(t, w)
	assert.Equal(t, api.CodeMalformedCase, body.Code)
	assert.Contains(t, body.Violations, "case_id is required")
	assert.Contains(t, body.Violations, "rx_number is required")

	// A rejected case leaves no trace on the ledger.
	head, err := f.led.Head(context.Background())
	require.NoError(t, err)
	assert.Nil(t, head)
}

func TestEvaluate_InvalidJSON(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{passStub("license")}, nil, nil)

	w := post(f.h, "/v1/cases/evaluate", []byte(`{"case_id": CASE`))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, api.CodeInvalidJSON, decodeError(t, w).Code)
}

func TestEvaluate_PayloadTooLarge(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{passStub("license")}, nil, nil)

	// Valid JSON that crosses the body cap mid-document, so the size
	// limit is what rejects it rather than the parser.
	body := fmt.Sprintf(`{"case_id":%q}`, strings.Repeat("x", 1<<20))
	w := post(f.h, "/v1/cases/evaluate", []byte(body))
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, api.CodePayloadTooLarge, decodeError(t, w).Code)
}

func TestEvaluate_LedgerDown(t *testing.T) {
	store := &failingStore{Store: storage.NewMemoryStore()}
	f := newFixture(t, []evaluator.Evaluator{passStub("license")}, store, nil)

	w := postJSON(t, f.h, "/v1/cases/evaluate", testCase())
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	body := decodeError(t, w)
	assert.Equal(t, api.CodeLedgerUnavailable, body.Code)
	assert.NotContains(t, w.Body.String(), "decision_id", "no decision may leak when the audit write failed")
}

func TestOverride_Flow(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{blockStub("license")}, nil, nil)

	d := evaluateCase(t, f.h, testCase())
	require.Equal(t, verdict.Hold, d.Outcome)

	w := postJSON(t, f.h, "/v1/cases/"+d.CaseID+"/override", api.OverrideRequest{
		DecisionID: d.ID,
		Actor:      "pharmacist-lin",
		Outcome:    string(verdict.Dispense),
		Rationale:  "license renewal verified by phone with the state board",
	})
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

	var resp api.OverrideResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ledger.KindOverride, resp.Entry.Kind)
	assert.Equal(t, d.CaseID, resp.Entry.CaseID)

	var payload struct {
		DecisionID string `json:"decision_id"`
		Actor      string `json:"actor"`
	}
	require.NoError(t, json.Unmarshal(resp.Entry.Payload, &payload))
	assert.Equal(t, d.ID, payload.DecisionID)
	assert.Equal(t, "pharmacist-lin", payload.Actor)

	// The override extends the chain without breaking it.
	vr, err := f.led.VerifyChain(context.Background())
	require.NoError(t, err)
	assert.True(t, vr.Intact)
}

func TestOverride_UnknownDecision(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{blockStub("license")}, nil, nil)

	d := evaluateCase(t, f.h, testCase())

	// Wrong decision ID on a real case.
	w := postJSON(t, f.h, "/v1/cases/"+d.CaseID+"/override", api.OverrideRequest{
		DecisionID: "0000000000000000000000000000000000000000000000000000000000000000",
		Actor:      "pharmacist-lin",
		Outcome:    string(verdict.Dispense),
		Rationale:  "wrong id",
	})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, api.CodeNotFound, decodeError(t, w).Code)

	// A case with no recorded decisions at all.
	w = postJSON(t, f.h, "/v1/cases/CASE-9999/override", api.OverrideRequest{
		DecisionID: d.ID,
		Actor:      "pharmacist-lin",
		Outcome:    string(verdict.Dispense),
		Rationale:  "wrong case",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOverride_Validation(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{blockStub("license")}, nil, nil)
	d := evaluateCase(t, f.h, testCase())

	tests := []struct {
		name string
		req  api.OverrideRequest
	}{
		{
			name: "missing actor",
			req: api.OverrideRequest{
				DecisionID: d.ID,
				Outcome:    string(verdict.Dispense),
				Rationale:  "spoke with the prescriber",
			},
		},
		{
			name: "missing rationale",
			req: api.OverrideRequest{
				DecisionID: d.ID,
				Actor:      "pharmacist-lin",
				Outcome:    string(verdict.Dispense),
			},
		},
		{
			name: "missing decision id",
			req: api.OverrideRequest{
				Actor:     "pharmacist-lin",
				Outcome:   string(verdict.Dispense),
				Rationale: "spoke with the prescriber",
			},
		},
		{
			name: "escalate is not an override outcome",
			req: api.OverrideRequest{
				DecisionID: d.ID,
				Actor:      "pharmacist-lin",
				Outcome:    string(verdict.Escalate),
				Rationale:  "kick it back to triage",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, f.h, "/v1/cases/"+d.CaseID+"/override", tt.req)
			require.Equal(t, http.StatusBadRequest, w.Code, "body: %s", w.Body.String())
			assert.Equal(t, api.CodeInvalidOverride, decodeError(t, w).Code)
		})
	}
}

func TestOverride_InvalidJSON(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{blockStub("license")}, nil, nil)

	w := post(f.h, "/v1/cases/CASE-2001/override", []byte(`not json`))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, api.CodeInvalidJSON, decodeError(t, w).Code)
}

func TestAuditEntries_Pagination(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{passStub("license")}, nil, nil)

	evaluateCase(t, f.h, testCase())
	second := testCase()
	second.CaseID = "CASE-2002"
	evaluateCase(t, f.h, second)

	// Two runs, each one evaluation-run entry plus one decision.
	w := get(f.h, "/v1/audit/entries")
	require.Equal(t, http.StatusOK, w.Code)
	var page api.EntriesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Equal(t, 4, page.Count)
	assert.Equal(t, uint64(1), page.Entries[0].Sequence)
	assert.Equal(t, uint64(4), page.NextAfter)

	// Page through with a limit.
	w = get(f.h, "/v1/audit/entries?limit=3")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Equal(t, 3, page.Count)
	assert.Equal(t, uint64(3), page.NextAfter)

	w = get(f.h, fmt.Sprintf("/v1/audit/entries?limit=3&after=%d", page.NextAfter))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Equal(t, 1, page.Count)
	assert.Equal(t, uint64(4), page.Entries[0].Sequence)

	// The tail page is empty with no cursor.
	w = get(f.h, "/v1/audit/entries?after=4")
	require.Equal(t, http.StatusOK, w.Code)
	var tail api.EntriesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tail))
	assert.Zero(t, tail.Count)
	assert.Zero(t, tail.NextAfter)
}

func TestAuditEntries_CaseFilter(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{passStub("license")}, nil, nil)

	evaluateCase(t, f.h, testCase())
	second := testCase()
	second.CaseID = "CASE-2002"
	evaluateCase(t, f.h, second)

	w := get(f.h, "/v1/audit/entries?case_id=CASE-2002")
	require.Equal(t, http.StatusOK, w.Code)

	var page api.EntriesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Equal(t, 2, page.Count)
	for _, e := range page.Entries {
		assert.Equal(t, "CASE-2002", e.CaseID)
	}
}

func TestAuditEntries_BadQuery(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{passStub("license")}, nil, nil)

	for _, path := range []string{
		"/v1/audit/entries?after=abc",
		"/v1/audit/entries?after=-1",
		"/v1/audit/entries?limit=0",
		"/v1/audit/entries?limit=-3",
		"/v1/audit/entries?limit=ten",
	} {
		w := get(f.h, path)
		require.Equal(t, http.StatusBadRequest, w.Code, "path %s", path)
		assert.Equal(t, api.CodeInvalidQuery, decodeError(t, w).Code, "path %s", path)
	}
}

func TestAuditVerify(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{passStub("license")}, nil, nil)

	evaluateCase(t, f.h, testCase())

	w := get(f.h, "/v1/audit/verify")
	require.Equal(t, http.StatusOK, w.Code)

	var result ledger.VerifyResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Intact)
	assert.Equal(t, uint64(2), result.Checked)
	assert.Zero(t, result.BrokenAt)
}
