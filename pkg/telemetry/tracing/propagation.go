package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// The pharmacy system upstream is usually already tracing a fill when
// it submits a case. Honoring the W3C traceparent header it sends keeps
// the evaluation spans attached to that trace instead of starting a
// disconnected one.

// Propagator returns the globally installed text map propagator. New
// installs a composite of W3C Trace Context and Baggage.
func Propagator() propagation.TextMapPropagator {
	return otel.GetTextMapPropagator()
}

// Extract returns a context carrying any trace context found in the
// request headers. Without a traceparent header the context comes back
// unchanged.
func Extract(ctx context.Context, headers http.Header) context.Context {
	return Propagator().Extract(ctx, propagation.HeaderCarrier(headers))
}

// TraceContext is HTTP middleware that adopts the caller's trace before
// the request is handled and echoes the trace ID on the response, so a
// submitting system can file X-Trace-ID alongside its fill record and
// later match it to audit entries.
func TraceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := Extract(r.Context(), r.Header)
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			w.Header().Set("X-Trace-ID", sc.TraceID().String())
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
