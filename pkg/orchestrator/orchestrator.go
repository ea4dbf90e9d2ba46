// Package orchestrator runs the evaluation pipeline for one dispensing
// case: validate, fan out to the applicable evaluators, merge the verdicts
// into a decision, and commit the run to the audit ledger.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"rxsentinel/arbiter/pkg/config"
	"rxsentinel/arbiter/pkg/dispensing"
	"rxsentinel/arbiter/pkg/evaluator"
	"rxsentinel/arbiter/pkg/ledger"
	"rxsentinel/arbiter/pkg/telemetry/metrics"
	"rxsentinel/arbiter/pkg/telemetry/tracing"
	"rxsentinel/arbiter/pkg/verdict"
)

const (
	defaultRunDeadline = 30 * time.Second
	defaultRetryFloor  = 1 * time.Second

	defaultWriteAttempts  = 3
	defaultWriteBaseDelay = 100 * time.Millisecond
	defaultWriteMaxDelay  = 5 * time.Second
)

var noopTracer = noop.NewTracerProvider().Tracer("rxsentinel/arbiter/orchestrator")

// Orchestrator coordinates one evaluation run per Run call. It holds no
// per-case state; a single instance serves concurrent cases.
//
// The registry is read through a Holder so parameter reloads swap it
// atomically between runs. A run that is already in flight keeps the
// snapshot it started with.
type Orchestrator struct {
	cfg    config.OrchestratorConfig
	holder *evaluator.Holder
	ledger *ledger.Ledger

	log     *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	now     func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator's logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// WithMetrics attaches a metrics collector. Without one, the orchestrator
// records nothing.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *Orchestrator) { o.metrics = c }
}

// WithTracer attaches a tracer. Without one, spans are no-ops.
func WithTracer(t *tracing.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithClock overrides the clock used to stamp decisions and overrides.
// Durations in logs and metrics always use the wall clock.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates an Orchestrator backed by the given registry holder and
// ledger. Zero config fields fall back to the documented defaults.
func New(cfg config.OrchestratorConfig, holder *evaluator.Holder, led *ledger.Ledger, opts ...Option) (*Orchestrator, error) {
	if holder == nil {
		return nil, errors.New("registry holder is nil")
	}
	if led == nil {
		return nil, errors.New("ledger is nil")
	}

	o := &Orchestrator{
		cfg:    cfg,
		holder: holder,
		ledger: led,
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run evaluates one case end to end and returns the audited decision.
//
// The case is validated first; a malformed case rejects the whole run with
// a *dispensing.MalformedCaseError before any evaluator is invoked, which
// keeps a bad submission distinct from a HOLD on a well-formed one.
//
// Applicable evaluators run concurrently on a bounded pool under a shared
// deadline. A panicking evaluator is contained and recorded as a fault; a
// transient failure is retried once with a shorter sub-deadline. The merge
// runs only after every evaluator has produced a verdict or been marked
// failed, so the decision never reflects a partial result set.
//
// The decision is not returned until its audit batch is durably appended.
// If the append retry budget is exhausted, Run returns a *LedgerWriteError
// and the decision must be treated as never made.
func (o *Orchestrator) Run(ctx context.Context, c *dispensing.Case) (*verdict.Decision, error) {
	start := time.Now()

	ctx, span := o.startSpan(ctx, "orchestrator.run")
	defer span.End()

	if c == nil {
		return nil, dispensing.NewMalformedCaseError("", []string{"case is nil"})
	}
	tracing.SetCaseAttributes(span, c.CaseID, c.Facility.State)

	if err := c.Validate(); err != nil {
		o.log.WarnContext(ctx, "case rejected before orchestration",
			"case_id", c.CaseID,
			"error", err,
		)
		if o.metrics != nil {
			o.metrics.RecordCaseRejected("malformed")
		}
		tracing.SetError(span, err)
		return nil, err
	}

	reg := o.holder.Current()
	if reg == nil {
		err := errors.New("no evaluator registry installed")
		tracing.SetError(span, err)
		return nil, err
	}

	evals := reg.Applicable(c)
	order := make([]string, len(evals))
	for i, ev := range evals {
		order[i] = ev.ID()
	}

	o.log.InfoContext(ctx, "evaluation run started",
		"case_id", c.CaseID,
		"registry_version", reg.Version(),
		"evaluators", order,
	)

	runCtx, cancel := context.WithTimeout(ctx, o.runDeadline())
	defer cancel()

	verdicts, failures := o.dispatch(runCtx, evals, c)

	decision := verdict.Merge(verdict.MergeInput{
		CaseID:          c.CaseID,
		CaseFingerprint: c.Fingerprint(),
		RegistryVersion: reg.Version(),
		Verdicts:        verdicts,
		Failures:        failures,
		Order:           order,
		DecidedAt:       o.now().UTC(),
	})

	if err := o.appendRun(ctx, decision); err != nil {
		tracing.SetError(span, err)
		return nil, err
	}

	elapsed := time.Since(start)
	tracing.SetDecisionAttributes(span, decision.ID, string(decision.Outcome), string(decision.EscalationTarget))
	o.log.InfoContext(ctx, "decision recorded",
		"case_id", decision.CaseID,
		"decision_id", decision.ID,
		"outcome", decision.Outcome,
		"escalation", decision.EscalationTarget,
		"verdicts", len(decision.Verdicts),
		"failures", len(decision.Failures),
		"duration_ms", elapsed.Milliseconds(),
	)
	if o.metrics != nil {
		o.metrics.RecordDecision(string(decision.Outcome), string(decision.EscalationTarget), elapsed)
	}
	return decision, nil
}

func (o *Orchestrator) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if o.tracer != nil {
		return o.tracer.Start(ctx, name)
	}
	return noopTracer.Start(ctx, name)
}

func (o *Orchestrator) maxConcurrent() int {
	if o.cfg.MaxConcurrent > 0 {
		return o.cfg.MaxConcurrent
	}
	return runtime.GOMAXPROCS(0)
}

func (o *Orchestrator) runDeadline() time.Duration {
	if o.cfg.RunDeadline > 0 {
		return o.cfg.RunDeadline
	}
	return defaultRunDeadline
}

func (o *Orchestrator) retryFloor() time.Duration {
	if o.cfg.RetryFloor > 0 {
		return o.cfg.RetryFloor
	}
	return defaultRetryFloor
}

func (o *Orchestrator) writeAttempts() int {
	if o.cfg.LedgerWrite.Attempts > 0 {
		return o.cfg.LedgerWrite.Attempts
	}
	return defaultWriteAttempts
}

func (o *Orchestrator) writeBaseDelay() time.Duration {
	if o.cfg.LedgerWrite.BaseDelay > 0 {
		return o.cfg.LedgerWrite.BaseDelay
	}
	return defaultWriteBaseDelay
}

func (o *Orchestrator) writeMaxDelay() time.Duration {
	if o.cfg.LedgerWrite.MaxDelay > 0 {
		return o.cfg.LedgerWrite.MaxDelay
	}
	return defaultWriteMaxDelay
}
