package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewZapLogger_WritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewZapLogger(Config{Level: DebugLevel, Format: JSONFormat, Service: "marketplace", Output: &buf})
	if err != nil {
		t.Fatalf("NewZapLogger() error = %v", err)
	}

	log.Info("listing created", "listing_id", "abc", "sequence_number", 7)
	_ = log.Sync()

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["message"] != "listing created" {
		t.Errorf("message = %v, want listing created", entry["message"])
	}
	if entry["service"] != "marketplace" {
		t.Errorf("service = %v, want marketplace", entry["service"])
	}
	if entry["listing_id"] != "abc" {
		t.Errorf("listing_id = %v, want abc", entry["listing_id"])
	}
}

func TestZapLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log, _ := NewZapLogger(Config{Level: WarnLevel, Format: JSONFormat, Output: &buf})

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")
	_ = log.Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("entries below warn were written: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn entry missing: %q", out)
	}
}

func TestZapLogger_WithContextAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log, _ := NewZapLogger(Config{Level: InfoLevel, Format: JSONFormat, Output: &buf})

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-42")
	log.WithContext(ctx).Info("hello")
	_ = log.Sync()

	if !strings.Contains(buf.String(), `"request_id":"req-42"`) {
		t.Errorf("request id missing from %q", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"loud", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLogFormat(t *testing.T) {
	if got, err := ParseLogFormat("console"); err != nil || got != TextFormat {
		t.Errorf("ParseLogFormat(console) = %v, %v", got, err)
	}
	if _, err := ParseLogFormat("xml"); err == nil {
		t.Error("ParseLogFormat(xml) expected error")
	}
}
