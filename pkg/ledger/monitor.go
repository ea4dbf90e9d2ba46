package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Monitor re-verifies the hash chain on a schedule, so tampering is
// noticed between audits rather than during one.
type Monitor struct {
	ledger   *Ledger
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
	onResult func(*VerifyResult)
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithMonitorLogger sets the monitor's logger.
func WithMonitorLogger(log *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		m.logger = log
	}
}

// WithResultHook registers a callback invoked with every verification
// result. Metrics wiring attaches here.
func WithResultHook(hook func(*VerifyResult)) MonitorOption {
	return func(m *Monitor) {
		m.onResult = hook
	}
}

// NewMonitor creates a chain monitor. The schedule uses standard cron
// syntax; an empty schedule disables the monitor.
func NewMonitor(l *Ledger, schedule string, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		ledger:   l,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "ledger.monitor")
	return m
}

// Start begins scheduled verification.
//
// Common cron expressions:
//   - "0 3 * * *"    - Daily at 3 AM
//   - "0 */6 * * *"  - Every 6 hours
//
// If the schedule is empty, Start does nothing.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.schedule == "" {
		m.logger.Info("verification schedule not configured, skipping monitor")
		return nil
	}

	if _, err := cron.ParseStandard(m.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", m.schedule, err)
	}

	if _, err := m.cron.AddFunc(m.schedule, func() {
		m.runVerification(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule chain verification: %w", err)
	}

	m.cron.Start()
	m.running = true

	m.logger.Info("chain monitor started", "schedule", m.schedule)

	go func() {
		<-ctx.Done()
		m.Stop()
	}()

	return nil
}

// runVerification executes one verification pass.
func (m *Monitor) runVerification(ctx context.Context) {
	m.logger.Debug("starting scheduled chain verification")

	result, err := m.ledger.VerifyChain(ctx)
	if err != nil {
		m.logger.Error("scheduled chain verification failed", "error", err)
		return
	}

	if m.onResult != nil {
		m.onResult(result)
	}

	if result.Intact {
		m.logger.Info("chain verified", "entries", result.Checked)
		return
	}
	m.logger.Error("chain verification found divergence",
		"broken_at", result.BrokenAt,
		"reason", result.Reason,
		"entries_checked", result.Checked,
	)
}

// Stop stops the monitor and waits for a running verification to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cron != nil && m.running {
		ctx := m.cron.Stop()
		<-ctx.Done()
		m.running = false
		m.logger.Info("chain monitor stopped")
	}
}

// IsRunning returns true if the monitor is running.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// NextRun returns the next scheduled verification time.
func (m *Monitor) NextRun() *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cron == nil {
		return nil
	}
	entries := m.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
