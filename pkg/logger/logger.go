package logger

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"go.uber.org/zap"
)

type ctxKey struct{}

func NewLogger() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return l
}

// NewTraceID generates a random id correlating one request or sync
// operation across log lines.
func NewTraceID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// ContextWithTrace stores a trace id in the context.
func ContextWithTrace(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, traceID)
}

// TraceFromContext returns the trace id stored in ctx, or "".
func TraceFromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(ctxKey{}).(string); ok {
		return traceID
	}
	return ""
}

// WithTrace returns a child logger carrying the trace id from ctx.
func WithTrace(ctx context.Context, l *zap.Logger) *zap.Logger {
	traceID := TraceFromContext(ctx)
	if traceID != "" {
		return l.With(zap.String("trace_id", traceID))
	}
	return l
}
