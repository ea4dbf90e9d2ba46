package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"rxsentinel/arbiter/pkg/config"
)

// CheckFunc probes a single component. A nil return means the
// component is healthy; any error marks it unhealthy with the error
// text as the message.
type CheckFunc func(ctx context.Context) error

// ErrCheckTimeout is reported for a probe that did not return within
// the configured check timeout.
var ErrCheckTimeout = errors.New("health check timeout")

const defaultCheckTimeout = 5 * time.Second

// CheckResult is the outcome of one component probe.
type CheckResult struct {
	// Status is "ok" or "unhealthy".
	Status string `json:"status"`

	// Message carries the failure detail for unhealthy components.
	Message string `json:"message,omitempty"`

	// DurationMS is how long the probe took, in milliseconds.
	DurationMS float64 `json:"duration_ms,omitempty"`
}

// Status is the aggregated health of the service.
type Status struct {
	// Status is "ok" or "ready" when all probes pass, "degraded"
	// when any probe fails.
	Status string `json:"status"`

	// Checks holds per-component results, keyed by probe name.
	Checks map[string]CheckResult `json:"checks,omitempty"`

	// Timestamp records when the evaluation ran.
	Timestamp time.Time `json:"timestamp"`
}

// Checker runs registered component probes and aggregates their
// results. Liveness never touches the probes; readiness runs all of
// them concurrently, each bounded by the check timeout.
type Checker struct {
	mu     sync.RWMutex
	probes map[string]CheckFunc

	checkTimeout time.Duration
}

// New creates a Checker. A nil config or zero timeout falls back to
// the default check timeout.
func New(cfg *config.HealthConfig) *Checker {
	timeout := defaultCheckTimeout
	if cfg != nil && cfg.CheckTimeout > 0 {
		timeout = cfg.CheckTimeout
	}
	return &Checker{
		probes:       make(map[string]CheckFunc),
		checkTimeout: timeout,
	}
}

// RegisterCheck registers a probe under name. Registering the same
// name again replaces the previous probe.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = check
}

// CheckLiveness reports whether the process is alive. It never runs
// probes: a process that can answer is live even when a dependency is
// down, and restarting it would not help.
func (c *Checker) CheckLiveness(_ context.Context) Status {
	return Status{
		Status:    "ok",
		Timestamp: time.Now(),
	}
}

// CheckReadiness runs every registered probe concurrently and reports
// "ready" only when all of them pass. A single failing probe degrades
// the whole status.
func (c *Checker) CheckReadiness(ctx context.Context) Status {
	c.mu.RLock()
	probes := make(map[string]CheckFunc, len(c.probes))
	for name, probe := range c.probes {
		probes[name] = probe
	}
	c.mu.RUnlock()

	status := Status{
		Status:    "ready",
		Checks:    make(map[string]CheckResult, len(probes)),
		Timestamp: time.Now(),
	}

	var (
		wg    sync.WaitGroup
		resMu sync.Mutex
	)
	for name, probe := range probes {
		wg.Add(1)
		go func(name string, probe CheckFunc) {
			defer wg.Done()
			res := c.runProbe(ctx, probe)

			resMu.Lock()
			status.Checks[name] = res
			if res.Status != "ok" {
				status.Status = "degraded"
			}
			resMu.Unlock()
		}(name, probe)
	}
	wg.Wait()

	return status
}

// runProbe executes one probe under the check timeout. The probe runs
// in its own goroutine so that one which ignores its context cannot
// wedge readiness past the deadline.
func (c *Checker) runProbe(ctx context.Context, probe CheckFunc) CheckResult {
	probeCtx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- probe(probeCtx)
	}()

	var err error
	select {
	case err = <-done:
	case <-probeCtx.Done():
		err = ErrCheckTimeout
	}

	res := CheckResult{
		Status:     "ok",
		DurationMS: float64(time.Since(start).Microseconds()) / 1000.0,
	}
	if err != nil {
		res.Status = "unhealthy"
		res.Message = err.Error()
	}
	return res
}
