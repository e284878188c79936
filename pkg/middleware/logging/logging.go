// Package logging writes one structured access log entry per request.
package logging

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mealboard/marketplace/pkg/observability/logger"
	"github.com/mealboard/marketplace/pkg/server/router"
)

// Log field names.
const (
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldRemoteAddr = "remote_addr"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
)

// Config configures request logging.
type Config struct {
	// ExcludedPathPrefixes are not logged, e.g. "/health".
	ExcludedPathPrefixes []string
	// LogQuery adds the raw query string, which carries listing filters.
	LogQuery bool
}

// DefaultConfig logs everything except health probes.
func DefaultConfig() Config {
	return Config{
		ExcludedPathPrefixes: []string{"/health", "/ready"},
		LogQuery:             true,
	}
}

// Logging logs "request completed" at info, or "request failed" at error when
// the handler returned an error or answered 5xx.
func Logging(log logger.Logger, cfg Config) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			if excluded(req.URL.Path, cfg.ExcludedPathPrefixes) {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			// Read the request again: earlier middleware may have replaced its context.
			req = c.Request()
			status := c.Response().Status()
			if err != nil && !c.Response().Written() {
				status = http.StatusInternalServerError
			}
			fields := []any{
				FieldMethod, req.Method,
				FieldPath, req.URL.Path,
				FieldStatus, status,
				FieldDurationMS, duration.Milliseconds(),
				FieldRemoteAddr, remoteIP(req.RemoteAddr),
				FieldUserAgent, req.UserAgent(),
			}
			if cfg.LogQuery && req.URL.RawQuery != "" {
				fields = append(fields, FieldQuery, req.URL.RawQuery)
			}

			entry := log.WithContext(req.Context())
			if err != nil || status >= 500 {
				if err != nil {
					fields = append(fields, FieldError, err.Error())
				}
				entry.Error("request failed", fields...)
				return err
			}
			entry.Info("request completed", fields...)
			return nil
		}
	}
}

func excluded(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func remoteIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
