// Package observability carries log attributes through a context.Context so
// that log lines emitted deep inside a build name the session and execution
// they belong to.
package observability

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/javabuild/internal/logfields"
)

// LogContext holds the attributes attached to a context.
type LogContext struct {
	SessionID   string
	ExecutionID string
	Unit        string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithSession records the build session ID.
func WithSession(ctx context.Context, id string) context.Context {
	lc := FromContext(ctx)
	lc.SessionID = id
	return context.WithValue(ctx, logContextKey, lc)
}

// WithExecution records the execution ID and the unit being built.
func WithExecution(ctx context.Context, id, unit string) context.Context {
	lc := FromContext(ctx)
	lc.ExecutionID = id
	lc.Unit = unit
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext returns the attributes stored in ctx, if any.
func FromContext(ctx context.Context) LogContext {
	if ctx == nil {
		return LogContext{}
	}
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

func (lc LogContext) attrs() []slog.Attr {
	var attrs []slog.Attr
	if lc.SessionID != "" {
		attrs = append(attrs, logfields.Session(lc.SessionID))
	}
	if lc.ExecutionID != "" {
		attrs = append(attrs, logfields.ExecutionID(lc.ExecutionID))
	}
	if lc.Unit != "" {
		attrs = append(attrs, logfields.Unit(lc.Unit))
	}
	return attrs
}

// ContextHandler adds the LogContext of each record's context to the
// record. Attributes already on the record are not repeated.
type ContextHandler struct {
	next slog.Handler
}

// NewContextHandler wraps next.
func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := FromContext(ctx).attrs()
	if len(attrs) > 0 {
		present := make(map[string]bool, r.NumAttrs())
		r.Attrs(func(a slog.Attr) bool {
			present[a.Key] = true
			return true
		})
		for _, a := range attrs {
			if !present[a.Key] {
				r.AddAttrs(a)
			}
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}
