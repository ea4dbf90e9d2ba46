package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute helpers. Custom keys use the "arbiter.*" namespace.
// Spans never carry patient identifiers; the case ID is the only
// case-level key and it is opaque to the tracing backend.

const (
	// Case attributes
	AttrCaseID    = "arbiter.case_id"
	AttrCaseState = "arbiter.case_state"

	// Actor on override paths
	AttrActor = "arbiter.actor"

	// Evaluator attributes
	AttrEvaluator = "arbiter.evaluator"

	// Verdict attributes
	AttrVerdictOutcome  = "arbiter.verdict.outcome"
	AttrVerdictReason   = "arbiter.verdict.reason_code"
	AttrVerdictSeverity = "arbiter.verdict.severity"

	// Decision attributes
	AttrDecisionID         = "arbiter.decision.id"
	AttrDecisionOutcome    = "arbiter.decision.outcome"
	AttrDecisionEscalation = "arbiter.decision.escalation"

	// Ledger attributes
	AttrLedgerKind     = "arbiter.ledger.kind"
	AttrLedgerSequence = "arbiter.ledger.sequence"

	// Error attributes
	AttrErrorType    = "arbiter.error.type"
	AttrErrorMessage = "error.message"

	// Retry attributes
	AttrRetryCount = "arbiter.retry_count"
)

// SetCaseAttributes sets case-related attributes on a span.
func SetCaseAttributes(span trace.Span, caseID, state string) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrCaseID, caseID),
	}
	if state != "" {
		attrs = append(attrs, attribute.String(AttrCaseState, state))
	}
	span.SetAttributes(attrs...)
}

// SetEvaluatorAttribute sets the evaluator identity on a span.
func SetEvaluatorAttribute(span trace.Span, evaluator string) {
	span.SetAttributes(attribute.String(AttrEvaluator, evaluator))
}

// SetVerdictAttributes sets verdict-related attributes on a span.
func SetVerdictAttributes(span trace.Span, outcome, reasonCode string, severity int) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrVerdictOutcome, outcome),
	}
	if reasonCode != "" {
		attrs = append(attrs, attribute.String(AttrVerdictReason, reasonCode))
	}
	attrs = append(attrs, attribute.Int(AttrVerdictSeverity, severity))
	span.SetAttributes(attrs...)
}

// SetDecisionAttributes sets decision-related attributes on a span.
func SetDecisionAttributes(span trace.Span, decisionID, outcome, escalation string) {
	span.SetAttributes(
		attribute.String(AttrDecisionID, decisionID),
		attribute.String(AttrDecisionOutcome, outcome),
		attribute.String(AttrDecisionEscalation, escalation),
	)
}

// SetLedgerAttributes sets ledger-related attributes on a span.
func SetLedgerAttributes(span trace.Span, kind string, sequence uint64) {
	span.SetAttributes(
		attribute.String(AttrLedgerKind, kind),
		attribute.Int64(AttrLedgerSequence, int64(sequence)),
	)
}

// SetActorAttribute sets the acting pharmacist or technician on a span.
func SetActorAttribute(span trace.Span, actor string) {
	if actor != "" {
		span.SetAttributes(attribute.String(AttrActor, actor))
	}
}

// SetErrorAttributes records the error with its failure class and marks
// the span status. The class lands in arbiter.error.type so traces can
// be filtered by timeout versus fault.
func SetErrorAttributes(span trace.Span, err error, errorType string) {
	if err == nil {
		return
	}
	span.SetAttributes(
		attribute.Bool("error", true),
		attribute.String(AttrErrorType, errorType),
		attribute.String(AttrErrorMessage, err.Error()),
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetRetryAttribute sets the retry count attribute on a span.
func SetRetryAttribute(span trace.Span, retryCount int) {
	span.SetAttributes(attribute.Int(AttrRetryCount, retryCount))
}
