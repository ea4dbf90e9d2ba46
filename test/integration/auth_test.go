//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"rxsentinel/arbiter/internal/casetest"
	"rxsentinel/arbiter/pkg/config"
	"rxsentinel/arbiter/pkg/evaluator"
	"rxsentinel/arbiter/pkg/evaluator/rules"
	"rxsentinel/arbiter/pkg/ledger"
	"rxsentinel/arbiter/pkg/ledger/storage"
	"rxsentinel/arbiter/pkg/orchestrator"
	"rxsentinel/arbiter/pkg/server"
	"rxsentinel/arbiter/pkg/verdict"
)

const testAPIKey = "arb-integration-key-1"

// newAuthenticatedServer builds the full engine with API-key
// authentication enabled on the /v1/ surface.
func newAuthenticatedServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Security.Authentication.Enabled = true
	cfg.Security.Authentication.APIKeys = []string{testAPIKey}

	reg, err := rules.BuildRegistry(rules.Defaults(), casetest.Source())
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}

	led := ledger.New(storage.NewMemoryStore())
	t.Cleanup(func() { led.Close() })

	orch, err := orchestrator.New(cfg.Orchestrator, evaluator.NewHolder(reg), led)
	if err != nil {
		t.Fatalf("failed to create orchestrator: %v", err)
	}

	srv, err := server.New(cfg, orch, led)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestAPIKeyGuardsDecisionSurface(t *testing.T) {
	ts := newAuthenticatedServer(t)

	get := func(t *testing.T, path, key string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
		if err != nil {
			t.Fatalf("failed to build request: %v", err)
		}
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("failed to send request: %v", err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	t.Run("missing key is rejected", func(t *testing.T) {
		if resp := get(t, "/v1/audit/verify", ""); resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
		}
	})

	t.Run("wrong key is rejected", func(t *testing.T) {
		if resp := get(t, "/v1/audit/verify", "arb-wrong-key"); resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
		}
	})

	t.Run("valid key is accepted", func(t *testing.T) {
		if resp := get(t, "/v1/audit/verify", testAPIKey); resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("version endpoint stays open", func(t *testing.T) {
		if resp := get(t, "/version", ""); resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("authenticated evaluation round-trips", func(t *testing.T) {
		body, err := json.Marshal(casetest.Dispensable("CASE-AUTH-1"))
		if err != nil {
			t.Fatalf("failed to marshal case: %v", err)
		}
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/cases/evaluate", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("failed to build request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", testAPIKey)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("failed to send request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var out struct {
			Decision *verdict.Decision `json:"decision"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if out.Decision.Outcome != verdict.Dispense {
			t.Errorf("outcome = %s, want DISPENSE", out.Decision.Outcome)
		}
	})
}
