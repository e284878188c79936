// Package testutil provides helpers shared by middleware and handler tests.
package testutil

import (
	"context"
	"sync"

	"github.com/mealboard/marketplace/pkg/observability/logger"
)

// MockLogger captures log entries for assertions. Child loggers created with
// With share the parent's entry list.
type MockLogger struct {
	mu     *sync.Mutex
	logs   *[]LogEntry
	fields map[string]interface{}
}

// LogEntry represents a single captured entry.
type LogEntry struct {
	Level  string
	Msg    string
	Fields map[string]interface{}
}

// NewMockLogger returns an empty MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{mu: &sync.Mutex{}, logs: &[]LogEntry{}}
}

func (m *MockLogger) Debug(msg string, args ...any) { m.record("debug", msg, args) }
func (m *MockLogger) Info(msg string, args ...any)  { m.record("info", msg, args) }
func (m *MockLogger) Warn(msg string, args ...any)  { m.record("warn", msg, args) }
func (m *MockLogger) Error(msg string, args ...any) { m.record("error", msg, args) }

// With returns a child logger that adds args to every entry.
func (m *MockLogger) With(args ...any) logger.Logger {
	fields := make(map[string]interface{}, len(m.fields))
	for k, v := range m.fields {
		fields[k] = v
	}
	for k, v := range argsToMap(args) {
		fields[k] = v
	}
	return &MockLogger{mu: m.mu, logs: m.logs, fields: fields}
}

// WithContext adds the request ID from ctx, like the zap logger.
func (m *MockLogger) WithContext(ctx context.Context) logger.Logger {
	if requestID := logger.RequestIDFromContext(ctx); requestID != "" {
		return m.With("request_id", requestID)
	}
	return m
}

// Entries returns a snapshot of captured entries.
func (m *MockLogger) Entries() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LogEntry(nil), (*m.logs)...)
}

// Find returns the first entry with msg.
func (m *MockLogger) Find(msg string) (LogEntry, bool) {
	for _, entry := range m.Entries() {
		if entry.Msg == msg {
			return entry, true
		}
	}
	return LogEntry{}, false
}

func (m *MockLogger) record(level, msg string, args []any) {
	fields := argsToMap(args)
	for k, v := range m.fields {
		if _, ok := fields[k]; !ok {
			fields[k] = v
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.logs = append(*m.logs, LogEntry{Level: level, Msg: msg, Fields: fields})
}

func argsToMap(args []any) map[string]interface{} {
	fields := make(map[string]interface{})
	for i := 0; i < len(args)-1; i += 2 {
		if key, ok := args[i].(string); ok {
			fields[key] = args[i+1]
		}
	}
	return fields
}
