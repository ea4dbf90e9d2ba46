package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxsentinel/arbiter/pkg/config"
	"rxsentinel/arbiter/pkg/dispensing"
	"rxsentinel/arbiter/pkg/evaluator"
	"rxsentinel/arbiter/pkg/ledger"
	"rxsentinel/arbiter/pkg/ledger/storage"
	"rxsentinel/arbiter/pkg/orchestrator"
	"rxsentinel/arbiter/pkg/server"
	"rxsentinel/arbiter/pkg/server/api"
	"rxsentinel/arbiter/pkg/telemetry/health"
	"rxsentinel/arbiter/pkg/telemetry/metrics"
	"rxsentinel/arbiter/pkg/verdict"
)

var testClock = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCase() *dispensing.Case {
	fill := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	return &dispensing.Case{
		CaseID:       "CASE-2001",
		RxNumber:     "RX-449023",
		RefillNumber: 0,
		FillDate:     fill,
		UseDate:      fill,
		Prescriber: dispensing.Prescriber{
			Name:          "R. Alvarez",
			LicenseNumber: "A123456",
			LicenseState:  "CA",
			DEANumber:     "BA1234563",
		},
		Patient: dispensing.Patient{State: "CA", BirthYear: 1961},
		Drug: dispensing.Drug{
			Name:        "atorvastatin",
			Schedule:    dispensing.ScheduleNone,
			Class:       "statin",
			DailyDoseMG: 40,
			Quantity:    30,
			DaysSupply:  30,
		},
		Facility: dispensing.Facility{Type: dispensing.Facility503A, State: "CA"},
		Shipping: dispensing.Shipping{DestinationState: "CA"},
	}
}

// stubEvaluator runs an arbitrary function under a fixed ID.
type stubEvaluator struct {
	id string
	fn func(ctx context.Context, c *dispensing.Case) (verdict.Verdict, error)
}

func (s *stubEvaluator) ID() string { return s.id }

func (s *stubEvaluator) Evaluate(ctx context.Context, c *dispensing.Case) (verdict.Verdict, error) {
	return s.fn(ctx, c)
}

func passStub(id string) *stubEvaluator {
	return &stubEvaluator{id: id, fn: func(context.Context, *dispensing.Case) (verdict.Verdict, error) {
		return verdict.Verdict{
			Evaluator:   id,
			Outcome:     verdict.Pass,
			ReasonCode:  "OK",
			Explanation: "no issue found",
		}, nil
	}}
}

func blockStub(id string) *stubEvaluator {
	return &stubEvaluator{id: id, fn: func(context.Context, *dispensing.Case) (verdict.Verdict, error) {
		return verdict.Verdict{
			Evaluator:   id,
			Outcome:     verdict.Block,
			ReasonCode:  "LICENSE_EXPIRED",
			Explanation: "prescriber license expired before the fill date",
			Severity:    90,
		}, nil
	}}
}

func warnStub(id string) *stubEvaluator {
	return &stubEvaluator{id: id, fn: func(context.Context, *dispensing.Case) (verdict.Verdict, error) {
		return verdict.Verdict{
			Evaluator:   id,
			Outcome:     verdict.Warn,
			ReasonCode:  "DOSE_HIGH",
			Explanation: "daily dose above the advisory threshold",
			Severity:    40,
		}, nil
	}}
}

// failingStore wraps a working store but refuses every append.
type failingStore struct {
	ledger.Store
}

func (f *failingStore) AppendBatch(ctx context.Context, entries []*ledger.Entry) error {
	return assert.AnError
}

// fixture wires a server over stub evaluators and an in-memory ledger.
// Audit write retries are tuned down so failure-path tests do not sleep.
type fixture struct {
	srv  *server.Server
	h    http.Handler
	orch *orchestrator.Orchestrator
	led  *ledger.Ledger
	cfg  *config.Config
}

func newFixture(t *testing.T, evals []evaluator.Evaluator, store ledger.Store, mutate func(*config.Config)) *fixture {
	t.Helper()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Orchestrator.LedgerWrite.Attempts = 2
	cfg.Orchestrator.LedgerWrite.BaseDelay = time.Millisecond
	cfg.Orchestrator.LedgerWrite.MaxDelay = 5 * time.Millisecond
	if mutate != nil {
		mutate(cfg)
	}

	if store == nil {
		store = storage.NewMemoryStore()
	}
	led := ledger.New(store, ledger.WithClock(func() time.Time { return testClock }))

	reg := evaluator.NewRegistry()
	for _, ev := range evals {
		require.NoError(t, reg.Register(ev, nil))
	}

	orch, err := orchestrator.New(cfg.Orchestrator, evaluator.NewHolder(reg), led,
		orchestrator.WithLogger(discardLogger()),
		orchestrator.WithClock(func() time.Time { return testClock }),
	)
	require.NoError(t, err)

	srv, err := server.New(cfg, orch, led,
		server.WithLogger(discardLogger()),
		server.WithHealth(health.New(&cfg.Telemetry.Health)),
		server.WithVersion(health.VersionInfo{Version: "0.3.1", Commit: "deadbeef", BuildTime: "2026-03-01T00:00:00Z"}),
	)
	require.NoError(t, err)

	return &fixture{srv: srv, h: srv.Handler(), orch: orch, led: led, cfg: cfg}
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func post(h http.Handler, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return post(h, path, b)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) api.ErrorBody {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return resp.Error
}

// evaluateCase posts a case and returns the decoded decision.
func evaluateCase(t *testing.T, h http.Handler, c *dispensing.Case) *verdict.Decision {
	t.Helper()
	w := postJSON(t, h, "/v1/cases/evaluate", c)
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	var resp api.EvaluateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Decision)
	return resp.Decision
}

func TestNew_Validation(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{passStub("license")}, nil, nil)

	_, err := server.New(nil, f.orch, f.led)
	assert.Error(t, err)

	_, err = server.New(f.cfg, nil, f.led)
	assert.Error(t, err)

	_, err = server.New(f.cfg, f.orch, nil)
	assert.Error(t, err)
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{passStub("license")}, nil, nil)

	w := get(f.h, "/v1/cases/evaluate")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = post(f.h, "/v1/audit/entries", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandler_UnknownRoute(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{passStub("license")}, nil, nil)

	w := get(f.h, "/v1/nothing/here")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_RequestIDEchoed(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{passStub("license")}, nil, nil)

	w := get(f.h, "/v1/audit/verify")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/v1/audit/verify", nil)
	req.Header.Set("X-Request-ID", "trace-me-42")
	w = httptest.NewRecorder()
	f.h.ServeHTTP(w, req)
	assert.Equal(t, "trace-me-42", w.Header().Get("X-Request-ID"))
}

func TestHandler_AuthProtectsAPIRoutes(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{passStub("license")}, nil, func(cfg *config.Config) {
		cfg.Security.Authentication.Enabled = true
		cfg.Security.Authentication.APIKeys = []string{"integration-test-key"}
	})

	// API routes reject an unauthenticated caller with the error envelope.
	w := get(f.h, "/v1/audit/entries")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, api.CodeUnauthorized, decodeError(t, w).Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/audit/entries", nil)
	req.Header.Set("X-API-Key", "integration-test-key")
	w = httptest.NewRecorder()
	f.h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Operational endpoints stay open for probes and scrapers.
	assert.Equal(t, http.StatusOK, get(f.h, "/health").Code)
	assert.Equal(t, http.StatusOK, get(f.h, "/version").Code)
}

func TestHandler_VersionEndpoint(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{passStub("license")}, nil, nil)

	w := get(f.h, "/version")
	require.Equal(t, http.StatusOK, w.Code)

	var info health.VersionInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "0.3.1", info.Version)
	assert.Equal(t, "deadbeef", info.Commit)
	assert.NotEmpty(t, info.GoVersion)
}

func TestHandler_HealthEndpoints(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{passStub("license")}, nil, nil)

	assert.Equal(t, http.StatusOK, get(f.h, "/health").Code)
	assert.Equal(t, http.StatusOK, get(f.h, "/ready").Code)
}

func TestHandler_MetricsEndpoint(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	led := ledger.New(storage.NewMemoryStore())
	reg := evaluator.NewRegistry()
	require.NoError(t, reg.Register(passStub("license"), nil))

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	orch, err := orchestrator.New(cfg.Orchestrator, evaluator.NewHolder(reg), led,
		orchestrator.WithLogger(discardLogger()),
		orchestrator.WithMetrics(collector),
	)
	require.NoError(t, err)

	srv, err := server.New(cfg, orch, led,
		server.WithLogger(discardLogger()),
		server.WithMetrics(collector),
	)
	require.NoError(t, err)
	h := srv.Handler()

	evaluateCase(t, h, testCase())

	w := get(h, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "arbiter_decisions_total")
	assert.Contains(t, w.Body.String(), "arbiter_ledger_appends_total")
}

func TestServer_StartStop(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{passStub("license")}, nil, func(cfg *config.Config) {
		cfg.Server.ListenAddress = "127.0.0.1:0"
		cfg.Server.ShutdownTimeout = 2 * time.Second
	})

	errCh := make(chan error, 1)
	go func() { errCh <- f.srv.Start(context.Background()) }()

	require.Eventually(t, f.srv.IsRunning, 2*time.Second, 10*time.Millisecond)

	// A second Start on a running server is refused.
	assert.Error(t, f.srv.Start(context.Background()))

	f.srv.Stop()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.False(t, f.srv.IsRunning())
}

func TestServer_StopIsIdempotent(t *testing.T) {
	f := newFixture(t, []evaluator.Evaluator{passStub("license")}, nil, nil)

	f.srv.Stop()
	f.srv.Stop()
}
