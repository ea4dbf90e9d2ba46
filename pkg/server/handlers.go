package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"rxsentinel/arbiter/pkg/dispensing"
	"rxsentinel/arbiter/pkg/ledger"
	"rxsentinel/arbiter/pkg/orchestrator"
	"rxsentinel/arbiter/pkg/server/api"
	"rxsentinel/arbiter/pkg/verdict"
)

const (
	// maxCaseBody bounds an evaluation request body. A normalized case
	// with a full fill history fits comfortably in 1MB.
	maxCaseBody = 1 << 20

	// maxOverrideBody bounds an override request body.
	maxOverrideBody = 64 << 10

	// auditPageLimit is the default page size for audit reads.
	auditPageLimit = 100
)

// handleEvaluate runs one case through the engine and returns the audited
// decision. A malformed case is a 400 carrying every violation; a run
// whose audit write failed is a 503, because an unaudited decision does
// not exist.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var c dispensing.Case
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCaseBody)).Decode(&c); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			if s.metrics != nil {
				s.metrics.RecordCaseRejected("payload_too_large")
			}
			api.WriteError(w, http.StatusRequestEntityTooLarge, api.CodePayloadTooLarge,
				fmt.Sprintf("case body exceeds %d bytes", maxCaseBody))
			return
		}
		if s.metrics != nil {
			s.metrics.RecordCaseRejected("invalid_json")
		}
		api.WriteError(w, http.StatusBadRequest, api.CodeInvalidJSON,
			"request body is not a valid case document")
		return
	}

	decision, err := s.orch.Run(r.Context(), c.Normalize())
	if err != nil {
		var malformed *dispensing.MalformedCaseError
		var writeErr *orchestrator.LedgerWriteError
		switch {
		case errors.As(err, &malformed):
			api.WriteViolations(w, "case failed structural validation", malformed.Violations)
		case errors.As(err, &writeErr):
			api.WriteError(w, http.StatusServiceUnavailable, api.CodeLedgerUnavailable,
				"decision could not be durably recorded")
		default:
			api.WriteError(w, http.StatusInternalServerError, api.CodeInternal,
				"evaluation failed")
		}
		return
	}

	api.WriteJSON(w, http.StatusOK, api.EvaluateResponse{
		Decision:      decision,
		ReasonSummary: decision.ReasonSummary(),
	})
}

// handleOverride records a pharmacist override against an existing
// decision. The referenced decision must be on the case's ledger.
func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	caseID := r.PathValue("id")

	var req api.OverrideRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOverrideBody)).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeInvalidJSON,
			"request body is not a valid override document")
		return
	}
	if req.DecisionID == "" {
		api.WriteError(w, http.StatusBadRequest, api.CodeInvalidOverride,
			"decision_id is required")
		return
	}

	found, err := s.decisionExists(r, caseID, req.DecisionID)
	if err != nil {
		api.WriteError(w, http.StatusServiceUnavailable, api.CodeLedgerUnavailable,
			"audit ledger is unavailable")
		return
	}
	if !found {
		api.WriteError(w, http.StatusNotFound, api.CodeNotFound,
			fmt.Sprintf("no decision %q recorded for case %q", req.DecisionID, caseID))
		return
	}

	entry, err := s.orch.RecordOverride(r.Context(), caseID, req.DecisionID, req.Actor,
		verdict.DecisionOutcome(req.Outcome), req.Rationale)
	if err != nil {
		var writeErr *orchestrator.LedgerWriteError
		switch {
		case errors.Is(err, orchestrator.ErrInvalidOverride):
			api.WriteError(w, http.StatusBadRequest, api.CodeInvalidOverride, err.Error())
		case errors.As(err, &writeErr):
			api.WriteError(w, http.StatusServiceUnavailable, api.CodeLedgerUnavailable,
				"override could not be durably recorded")
		default:
			api.WriteError(w, http.StatusInternalServerError, api.CodeInternal,
				"override failed")
		}
		return
	}

	api.WriteJSON(w, http.StatusCreated, api.OverrideResponse{Entry: *entry})
}

// decisionExists reports whether the case's ledger history holds a
// decision entry with the given ID.
func (s *Server) decisionExists(r *http.Request, caseID, decisionID string) (bool, error) {
	if caseID == "" || decisionID == "" {
		return false, nil
	}
	var after uint64
	for {
		entries, err := s.led.EntriesFor(r.Context(), caseID, after, auditPageLimit)
		if err != nil {
			return false, err
		}
		if len(entries) == 0 {
			return false, nil
		}
		for _, e := range entries {
			if e.Kind != ledger.KindDecision {
				continue
			}
			var p struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(e.Payload, &p); err != nil {
				continue
			}
			if p.ID == decisionID {
				return true, nil
			}
		}
		after = entries[len(entries)-1].Sequence
	}
}

// handleAuditEntries serves paginated reads of the append-only ledger,
// optionally filtered to one case.
func (s *Server) handleAuditEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var after uint64
	if v := q.Get("after"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, api.CodeInvalidQuery,
				"after must be a sequence number")
			return
		}
		after = parsed
	}

	limit := auditPageLimit
	if v := q.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			api.WriteError(w, http.StatusBadRequest, api.CodeInvalidQuery,
				"limit must be a positive integer")
			return
		}
		limit = parsed
	}

	var (
		entries []ledger.Entry
		err     error
	)
	if caseID := q.Get("case_id"); caseID != "" {
		entries, err = s.led.EntriesFor(r.Context(), caseID, after, limit)
	} else {
		entries, err = s.led.Entries(r.Context(), after, limit)
	}
	if err != nil {
		api.WriteError(w, http.StatusServiceUnavailable, api.CodeLedgerUnavailable,
			"audit ledger is unavailable")
		return
	}

	resp := api.EntriesResponse{Entries: entries, Count: len(entries)}
	if len(entries) > 0 {
		resp.NextAfter = entries[len(entries)-1].Sequence
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

// handleAuditVerify re-walks the hash chain and reports the first
// divergence, if any.
func (s *Server) handleAuditVerify(w http.ResponseWriter, r *http.Request) {
	result, err := s.led.VerifyChain(r.Context())
	if err != nil {
		api.WriteError(w, http.StatusServiceUnavailable, api.CodeLedgerUnavailable,
			"audit ledger is unavailable")
		return
	}
	api.WriteJSON(w, http.StatusOK, result)
}
