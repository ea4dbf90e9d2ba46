package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// correlateHandler stamps records with the active trace and span IDs,
// so an operational log line can be matched to the exported trace and,
// through it, to the audit entries of the same evaluation run. Records
// logged outside any trace pass through untouched.
type correlateHandler struct {
	next slog.Handler
}

func (h *correlateHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *correlateHandler) Handle(ctx context.Context, rec slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		rec = rec.Clone()
		rec.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.next.Handle(ctx, rec)
}

func (h *correlateHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &correlateHandler{next: h.next.WithAttrs(attrs)}
}

func (h *correlateHandler) WithGroup(name string) slog.Handler {
	return &correlateHandler{next: h.next.WithGroup(name)}
}
