package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"rxsentinel/arbiter/pkg/config"
	"rxsentinel/arbiter/pkg/dispensing"
	"rxsentinel/arbiter/pkg/evaluator"
	"rxsentinel/arbiter/pkg/ledger"
	"rxsentinel/arbiter/pkg/ledger/storage"
	"rxsentinel/arbiter/pkg/refdata"
	"rxsentinel/arbiter/pkg/verdict"
)

// TestNew tests checker creation and timeout defaulting.
func TestNew(t *testing.T) {
	tests := []struct {
		name            string
		cfg             *config.HealthConfig
		expectedTimeout time.Duration
	}{
		{
			name:            "nil config",
			cfg:             nil,
			expectedTimeout: 5 * time.Second,
		},
		{
			name:            "zero timeout",
			cfg:             &config.HealthConfig{},
			expectedTimeout: 5 * time.Second,
		},
		{
			name:            "custom timeout",
			cfg:             &config.HealthConfig{CheckTimeout: 10 * time.Second},
			expectedTimeout: 10 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(tt.cfg)

			if checker == nil {
				t.Fatal("expected non-nil checker")
			}

			if checker.checkTimeout != tt.expectedTimeout {
				t.Errorf("expected timeout %v, got %v", tt.expectedTimeout, checker.checkTimeout)
			}

			if len(checker.probes) != 0 {
				t.Errorf("expected no probes, got %d", len(checker.probes))
			}
		})
	}
}

// TestRegisterCheck tests registering and replacing component probes.
func TestRegisterCheck(t *testing.T) {
	checker := New(nil)

	calls := 0
	checker.RegisterCheck("ledger", func(ctx context.Context) error {
		calls++
		return nil
	})

	status := checker.CheckReadiness(context.Background())
	if calls != 1 {
		t.Errorf("expected 1 probe call, got %d", calls)
	}
	if len(status.Checks) != 1 {
		t.Errorf("expected 1 result, got %d", len(status.Checks))
	}

	// Same name replaces: only the new probe runs.
	replaced := false
	checker.RegisterCheck("ledger", func(ctx context.Context) error {
		replaced = true
		return errors.New("replaced probe ran")
	})

	status = checker.CheckReadiness(context.Background())
	if !replaced {
		t.Error("expected replacement probe to run")
	}
	if calls != 1 {
		t.Errorf("expected original probe to stay replaced, got %d calls", calls)
	}
	if status.Status != "degraded" {
		t.Errorf("expected degraded from replacement probe, got %q", status.Status)
	}
}

// TestCheckLiveness tests that liveness never runs component probes.
func TestCheckLiveness(t *testing.T) {
	checker := New(nil)

	checker.RegisterCheck("broken", func(ctx context.Context) error {
		return errors.New("always failing")
	})

	status := checker.CheckLiveness(context.Background())

	if status.Status != "ok" {
		t.Errorf("expected status ok, got %q", status.Status)
	}

	if status.Timestamp.IsZero() {
		t.Error("expected non-zero timestamp")
	}

	if len(status.Checks) != 0 {
		t.Error("liveness must not include component results")
	}
}

// TestCheckReadiness tests readiness aggregation.
func TestCheckReadiness(t *testing.T) {
	t.Run("no checks", func(t *testing.T) {
		checker := New(nil)

		status := checker.CheckReadiness(context.Background())

		if status.Status != "ready" {
			t.Errorf("expected ready, got %q", status.Status)
		}
	})

	t.Run("all healthy", func(t *testing.T) {
		checker := New(nil)
		checker.RegisterCheck("ledger", func(ctx context.Context) error { return nil })
		checker.RegisterCheck("refdata", func(ctx context.Context) error { return nil })

		status := checker.CheckReadiness(context.Background())

		if status.Status != "ready" {
			t.Errorf("expected ready, got %q", status.Status)
		}

		if len(status.Checks) != 2 {
			t.Errorf("expected 2 results, got %d", len(status.Checks))
		}

		for name, result := range status.Checks {
			if result.Status != "ok" {
				t.Errorf("check %q: expected ok, got %q", name, result.Status)
			}
		}
	})

	t.Run("one unhealthy", func(t *testing.T) {
		checker := New(nil)
		checker.RegisterCheck("ledger", func(ctx context.Context) error { return nil })
		checker.RegisterCheck("refdata", func(ctx context.Context) error {
			return errors.New("database is locked")
		})

		status := checker.CheckReadiness(context.Background())

		if status.Status != "degraded" {
			t.Errorf("expected degraded, got %q", status.Status)
		}

		if status.Checks["refdata"].Message != "database is locked" {
			t.Errorf("expected failure message, got %q", status.Checks["refdata"].Message)
		}

		if status.Checks["ledger"].Status != "ok" {
			t.Errorf("healthy check affected: %q", status.Checks["ledger"].Status)
		}
	})

	t.Run("duration in milliseconds", func(t *testing.T) {
		checker := New(nil)
		checker.RegisterCheck("paced", func(ctx context.Context) error {
			time.Sleep(20 * time.Millisecond)
			return nil
		})

		status := checker.CheckReadiness(context.Background())

		got := status.Checks["paced"].DurationMS
		if got < 15 || got > 5000 {
			t.Errorf("expected a millisecond-scale duration, got %v", got)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		checker := New(&config.HealthConfig{CheckTimeout: 50 * time.Millisecond})
		checker.RegisterCheck("slow", func(ctx context.Context) error {
			select {
			case <-time.After(2 * time.Second):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})

		status := checker.CheckReadiness(context.Background())

		if status.Status != "degraded" {
			t.Errorf("expected degraded, got %q", status.Status)
		}

		if status.Checks["slow"].Message != ErrCheckTimeout.Error() {
			t.Errorf("expected timeout message, got %q", status.Checks["slow"].Message)
		}
	})
}

// TestLivenessHandler tests the liveness endpoint.
func TestLivenessHandler(t *testing.T) {
	checker := New(nil)
	handler := checker.LivenessHandler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	handler(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}

	var status Status
	if err := json.NewDecoder(rr.Body).Decode(&status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status.Status != "ok" {
		t.Errorf("expected ok, got %q", status.Status)
	}

	// Mutating methods rejected
	req = httptest.NewRequest(http.MethodPost, "/health", nil)
	rr = httptest.NewRecorder()
	handler(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}

// TestReadinessHandler tests the readiness endpoint status codes.
func TestReadinessHandler(t *testing.T) {
	checker := New(nil)
	checker.RegisterCheck("ledger", func(ctx context.Context) error { return nil })
	handler := checker.ReadinessHandler()

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rr := httptest.NewRecorder()
	handler(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}

	checker.RegisterCheck("refdata", func(ctx context.Context) error {
		return errors.New("unreachable")
	})

	rr = httptest.NewRecorder()
	handler(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rr.Code)
	}

	var status Status
	if err := json.NewDecoder(rr.Body).Decode(&status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status.Status != "degraded" {
		t.Errorf("expected degraded, got %q", status.Status)
	}

	// HEAD returns the status code without a body
	rr = httptest.NewRecorder()
	handler(rr, httptest.NewRequest(http.MethodHead, "/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 for HEAD, got %d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("expected empty body for HEAD, got %d bytes", rr.Body.Len())
	}
}

// TestVersionHandler tests the version endpoint.
func TestVersionHandler(t *testing.T) {
	handler := VersionHandler("0.1.0", "abc123", "2026-08-25T00:00:00Z")

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rr := httptest.NewRecorder()
	handler(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}

	var info VersionInfo
	if err := json.NewDecoder(rr.Body).Decode(&info); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if info.Version != "0.1.0" || info.Commit != "abc123" {
		t.Errorf("unexpected version info: %+v", info)
	}

	if info.GoVersion != runtime.Version() {
		t.Errorf("expected %q, got %q", runtime.Version(), info.GoVersion)
	}
}

// TestLedgerCheck tests the audit ledger probe.
func TestLedgerCheck(t *testing.T) {
	if err := LedgerCheck(nil)(context.Background()); err == nil {
		t.Error("expected error for nil ledger")
	}

	led := ledger.New(storage.NewMemoryStore())
	if err := LedgerCheck(led)(context.Background()); err != nil {
		t.Errorf("expected healthy ledger, got %v", err)
	}
}

// failingSource is a refdata.Source whose lookups always fail.
type failingSource struct{}

func (failingSource) PrescriberLicense(ctx context.Context, state, number string) (*refdata.License, error) {
	return nil, refdata.NewLookupError("stub", "license", errors.New("unreachable"))
}

func (failingSource) DEARegistration(ctx context.Context, number string) (*refdata.DEARegistration, error) {
	return nil, refdata.NewLookupError("stub", "dea", errors.New("unreachable"))
}

func (failingSource) StateRules(ctx context.Context, state string) (*refdata.StateRules, error) {
	return nil, refdata.NewLookupError("stub", "state_rules", errors.New("unreachable"))
}

func (failingSource) Close() error { return nil }

// TestRefdataCheck tests the reference-data probe.
func TestRefdataCheck(t *testing.T) {
	if err := RefdataCheck(nil)(context.Background()); err == nil {
		t.Error("expected error for nil source")
	}

	if err := RefdataCheck(refdata.NewMemorySource())(context.Background()); err != nil {
		t.Errorf("expected healthy source, got %v", err)
	}

	if err := RefdataCheck(failingSource{})(context.Background()); err == nil {
		t.Error("expected error for failing source")
	}
}

// checkEvaluator is a minimal evaluator for registry probes.
type checkEvaluator struct{}

func (checkEvaluator) ID() string { return "license" }

func (checkEvaluator) Evaluate(_ context.Context, _ *dispensing.Case) (verdict.Verdict, error) {
	return verdict.Verdict{}, nil
}

// TestRegistryCheck tests the evaluator registry probe.
func TestRegistryCheck(t *testing.T) {
	if err := RegistryCheck(nil)(context.Background()); err == nil {
		t.Error("expected error for nil holder")
	}

	holder := evaluator.NewHolder(nil)
	if err := RegistryCheck(holder)(context.Background()); err == nil {
		t.Error("expected error before a registry is installed")
	}

	reg := evaluator.NewRegistry()
	holder.Swap(reg)
	if err := RegistryCheck(holder)(context.Background()); err == nil {
		t.Error("expected error for empty registry")
	}

	if err := reg.Register(checkEvaluator{}, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := RegistryCheck(holder)(context.Background()); err != nil {
		t.Errorf("expected healthy registry, got %v", err)
	}

	// A reload that swaps in an empty registry degrades the probe.
	holder.Swap(evaluator.NewRegistry())
	if err := RegistryCheck(holder)(context.Background()); err == nil {
		t.Error("expected error after swapping in an empty registry")
	}
}
