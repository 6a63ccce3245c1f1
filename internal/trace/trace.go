// Package trace carries trace/span ids through capture ticks, inference calls and overlay requests.
// IDs follow W3C Trace Context sizes so they line up with the inference server's logs.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"time"
)

// Propagation keys, shared by gRPC metadata, HTTP headers and overlay messages.
const (
	TraceIDKey      = "x-trace-id"
	SpanIDKey       = "x-span-id"
	ParentSpanIDKey = "x-parent-span-id"
)

type ctxKey struct{}

// Context identifies one span of a trace.
type Context struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
}

// New starts a fresh trace.
func New() Context {
	return Context{TraceID: newID(16), SpanID: newID(8)}
}

// Child returns a new span in the same trace, parented on c.
// A zero Context yields a fresh trace.
func (c Context) Child() Context {
	if c.TraceID == "" {
		return New()
	}
	return Context{TraceID: c.TraceID, SpanID: newID(8), ParentSpanID: c.SpanID}
}

// Valid reports whether c carries a trace id.
func (c Context) Valid() bool { return c.TraceID != "" }

// FromContext returns the trace stored in ctx.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}

// WithContext stores tc in ctx.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// EnsureContext returns ctx's trace, starting one if absent.
func EnsureContext(ctx context.Context) (context.Context, Context) {
	if tc, ok := FromContext(ctx); ok {
		return ctx, tc
	}
	tc := New()
	return WithContext(ctx, tc), tc
}

// newID returns n random bytes hex-encoded: 16 for traces, 8 for spans.
func newID(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (c Context) logArgs() []any {
	args := []any{"trace_id", c.TraceID, "span_id", c.SpanID}
	if c.ParentSpanID != "" {
		args = append(args, "parent_span_id", c.ParentSpanID)
	}
	return args
}

// Span times one unit of work: a capture tick, a prefetch run.
// Attributes keep insertion order so log lines read the same way every time.
type Span struct {
	Name      string
	Ctx       Context
	StartTime time.Time
	EndTime   time.Time

	attrs []slog.Attr
	err   error
}

// StartSpan opens a child span of ctx's trace.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	parent, _ := FromContext(ctx)
	tc := parent.Child()
	return WithContext(ctx, tc), &Span{Name: name, Ctx: tc, StartTime: time.Now()}
}

// SetAttr records key=val, replacing an earlier value for key.
func (s *Span) SetAttr(key string, val any) {
	for i := range s.attrs {
		if s.attrs[i].Key == key {
			s.attrs[i].Value = slog.AnyValue(val)
			return
		}
	}
	s.attrs = append(s.attrs, slog.Any(key, val))
}

// Attr returns the value recorded for key.
func (s *Span) Attr(key string) (any, bool) {
	for _, a := range s.attrs {
		if a.Key == key {
			return a.Value.Any(), true
		}
	}
	return nil, false
}

// Fail marks the span as failed with err.
func (s *Span) Fail(err error) { s.err = err }

// Err returns the failure recorded with Fail.
func (s *Span) Err() error { return s.err }

// End stamps the end time.
func (s *Span) End() { s.EndTime = time.Now() }

// EndAndLog ends the span and logs it: debug on success, warn when failed.
func (s *Span) EndAndLog(ctx context.Context) {
	s.End()
	level := slog.LevelDebug
	if s.err != nil {
		level = slog.LevelWarn
	}
	Logger(ctx).Log(ctx, level, "span finished", "span", s)
}

// Duration is zero until End is called.
func (s *Span) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// LogValue implements slog.LogValuer.
func (s *Span) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(s.attrs)+3)
	attrs = append(attrs,
		slog.String("name", s.Name),
		slog.Duration("duration", s.Duration()),
	)
	attrs = append(attrs, s.attrs...)
	if s.err != nil {
		attrs = append(attrs, slog.String("error", s.err.Error()))
	}
	return slog.GroupValue(attrs...)
}

// Logger returns the default logger annotated with ctx's trace ids.
func Logger(ctx context.Context) *slog.Logger {
	tc, ok := FromContext(ctx)
	if !ok {
		return slog.Default()
	}
	return slog.Default().With(tc.logArgs()...)
}
