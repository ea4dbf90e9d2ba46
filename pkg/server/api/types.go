// Package api defines the request and response shapes of the HTTP
// surface, shared by the handlers and the middleware that write them.
package api

import (
	"rxsentinel/arbiter/pkg/ledger"
	"rxsentinel/arbiter/pkg/verdict"
)

// Error codes returned in the error envelope.
const (
	CodeInvalidJSON       = "invalid_json"
	CodePayloadTooLarge   = "payload_too_large"
	CodeMalformedCase     = "malformed_case"
	CodeInvalidOverride   = "invalid_override"
	CodeInvalidQuery      = "invalid_query"
	CodeNotFound          = "not_found"
	CodeUnauthorized      = "unauthorized"
	CodeLedgerUnavailable = "ledger_unavailable"
	CodeInternal          = "internal"
)

// ErrorResponse is the envelope for every non-2xx response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the machine-readable code and a human-readable
// message. Violations is populated for malformed cases so the caller sees
// every failed structural check, not just the first.
type ErrorBody struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Violations []string `json:"violations,omitempty"`
}

// EvaluateResponse is the body of a successful case evaluation: the
// audited decision plus the rendered reason summary for humans.
type EvaluateResponse struct {
	Decision      *verdict.Decision `json:"decision"`
	ReasonSummary string            `json:"reason_summary"`
}

// OverrideRequest is the body of an override submission. The case ID
// comes from the URL path.
type OverrideRequest struct {
	DecisionID string `json:"decision_id"`
	Actor      string `json:"actor"`
	Outcome    string `json:"outcome"`
	Rationale  string `json:"rationale"`
}

// OverrideResponse returns the recorded override entry.
type OverrideResponse struct {
	Entry ledger.Entry `json:"entry"`
}

// EntriesResponse is one page of audit entries. NextAfter is the cursor
// for the following page and is omitted when this page is empty.
type EntriesResponse struct {
	Entries   []ledger.Entry `json:"entries"`
	Count     int            `json:"count"`
	NextAfter uint64         `json:"next_after,omitempty"`
}
