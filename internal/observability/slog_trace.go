package observability

import (
	"context"
	"log/slog"

	"github.com/geocoder89/taskmaster/internal/actorctx"
	"go.opentelemetry.io/otel/trace"
)

// ContextHandler decorates records with request-scoped values carried on the
// context: the active span's trace_id/span_id and the authenticated actor_id.
// Records logged without a context (or with a bare one) pass through unchanged.
type ContextHandler struct {
	next slog.Handler
}

// NewContextHandler wraps next. Level filtering stays with next.
func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle adds trace_id and span_id only for a valid span context, and
// actor_id only once the auth middleware has stored a user on ctx.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	if actor, ok := actorctx.UserIDFrom(ctx); ok {
		r.AddAttrs(slog.String("actor_id", actor))
	}

	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}
