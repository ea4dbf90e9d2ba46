package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"rxsentinel/arbiter/pkg/dispensing"
	"rxsentinel/arbiter/pkg/evaluator"
	"rxsentinel/arbiter/pkg/telemetry/tracing"
	"rxsentinel/arbiter/pkg/verdict"
)

// dispatch runs every applicable evaluator on a bounded pool and collects
// verdicts and failures. It returns only once each evaluator has either
// committed a verdict or been marked failed, so the caller always merges a
// complete result set.
func (o *Orchestrator) dispatch(ctx context.Context, evals []evaluator.Evaluator, c *dispensing.Case) ([]verdict.Verdict, []verdict.Failure) {
	if len(evals) == 0 {
		return nil, nil
	}

	sem := make(chan struct{}, o.maxConcurrent())

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		verdicts []verdict.Verdict
		failures []verdict.Failure
	)

	for _, ev := range evals {
		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				// The run deadline expired while this evaluator was
				// still queued behind the pool.
				f := verdict.Failure{
					Evaluator: ev.ID(),
					Class:     verdict.FailureTimeout,
					Message:   "run deadline expired before evaluation started",
				}
				mu.Lock()
				failures = append(failures, f)
				mu.Unlock()
				if o.metrics != nil {
					o.metrics.RecordEvaluatorFailure(ev.ID(), string(verdict.FailureTimeout))
				}
				return
			}
			defer func() { <-sem }()

			v, f := o.evaluate(ctx, ev, c)
			mu.Lock()
			if f != nil {
				failures = append(failures, *f)
			} else {
				verdicts = append(verdicts, *v)
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	return verdicts, failures
}

// evaluate runs one evaluator, retrying once on a transient failure.
// Exactly one of the returns is non-nil.
func (o *Orchestrator) evaluate(ctx context.Context, ev evaluator.Evaluator, c *dispensing.Case) (*verdict.Verdict, *verdict.Failure) {
	ctx, span := o.startSpan(ctx, "orchestrator.evaluate")
	defer span.End()
	tracing.SetEvaluatorAttribute(span, ev.ID())

	start := time.Now()
	v, err := o.evaluateOnce(ctx, ev, c)
	elapsed := time.Since(start)

	retried := false
	if err != nil && evaluator.IsTransient(err) {
		retried = true
		if o.metrics != nil {
			o.metrics.RecordEvaluatorRetry(ev.ID())
		}
		tracing.SetRetryAttribute(span, 1)
		o.log.WarnContext(ctx, "transient evaluator failure, retrying",
			"evaluator", ev.ID(),
			"case_id", c.CaseID,
			"error", err,
		)

		retryCtx, cancel := o.retryContext(ctx)
		start = time.Now()
		v, err = o.evaluateOnce(retryCtx, ev, c)
		elapsed = time.Since(start)
		cancel()
	}

	if err != nil {
		f := classifyFailure(ev.ID(), err, retried)
		if o.metrics != nil {
			o.metrics.RecordEvaluatorFailure(ev.ID(), string(f.Class))
		}
		tracing.SetErrorAttributes(span, err, string(f.Class))
		o.log.ErrorContext(ctx, "evaluator failed",
			"evaluator", ev.ID(),
			"case_id", c.CaseID,
			"class", f.Class,
			"retried", retried,
			"error", err,
		)
		return nil, &f
	}

	if o.metrics != nil {
		o.metrics.RecordEvaluatorRun(ev.ID(), string(v.Outcome), elapsed)
	}
	tracing.SetVerdictAttributes(span, string(v.Outcome), v.ReasonCode, v.Severity)
	return &v, nil
}

// evaluateOnce invokes the evaluator with panic containment. A panic is
// converted into a fault so one broken evaluator cannot take down the run;
// faults are never retried.
func (o *Orchestrator) evaluateOnce(ctx context.Context, ev evaluator.Evaluator, c *dispensing.Case) (v verdict.Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.log.ErrorContext(ctx, "evaluator panic recovered",
				"evaluator", ev.ID(),
				"case_id", c.CaseID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = evaluator.NewFaultError(ev.ID(), fmt.Errorf("panic: %v", r))
		}
	}()
	return ev.Evaluate(ctx, c)
}

// retryContext derives the sub-deadline for a retried evaluator: half the
// budget remaining on the run, but never less than the configured floor.
// The context detaches from the run's cancellation so the floor holds even
// when the shared deadline is nearly spent; the retry is the last work the
// run does for that evaluator, and it is bounded either way.
func (o *Orchestrator) retryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	budget := o.retryFloor()
	if deadline, ok := ctx.Deadline(); ok {
		if half := time.Until(deadline) / 2; half > budget {
			budget = half
		}
	}
	return context.WithTimeout(context.WithoutCancel(ctx), budget)
}

// classifyFailure maps an evaluator error to its failure class. Deadline
// errors are timeouts; everything else, including contained panics and
// non-transient dependency errors, is a fault.
func classifyFailure(evaluatorID string, err error, retried bool) verdict.Failure {
	class := verdict.FailureFault
	var timeout *evaluator.TimeoutError
	if errors.As(err, &timeout) || errors.Is(err, context.DeadlineExceeded) {
		class = verdict.FailureTimeout
	}
	return verdict.Failure{
		Evaluator: evaluatorID,
		Class:     class,
		Message:   err.Error(),
		Retried:   retried,
	}
}
