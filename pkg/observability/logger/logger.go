// Package logger defines the structured logging contract used across the marketplace service.
package logger

import (
	"context"
)

// Logger is the structured logger used by every layer of the service.
// Log methods take a message followed by alternating key-value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With returns a child logger that adds the given key-value pairs to every entry.
	With(args ...any) Logger

	// WithContext returns a child logger tagged with the request ID carried by ctx, if any.
	WithContext(ctx context.Context) Logger
}

type contextKey string

// RequestIDKey is the context key under which the request ID middleware stores the ID.
const RequestIDKey contextKey = "request_id"

// RequestIDFromContext returns the request ID stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
