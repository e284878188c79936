// Package metrics records Prometheus HTTP metrics for every request.
package metrics

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	obsmetrics "github.com/mealboard/marketplace/pkg/observability/metrics"
	"github.com/mealboard/marketplace/pkg/server/router"
)

var identifier = regexp.MustCompile(`^([0-9a-fA-F]{24}|[0-9a-fA-F-]{36}|[0-9]+)$`)

// Metrics records duration, count and in-flight gauge on m. Identifier-like
// path segments are collapsed to ":id" so label cardinality stays bounded.
func Metrics(m *obsmetrics.HTTPMetrics) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			m.IncInFlight()
			defer m.DecInFlight()

			start := time.Now()
			err := next(c)

			status := c.Response().Status()
			if err != nil && !c.Response().Written() {
				status = http.StatusInternalServerError
			}
			m.Observe(c.Request().Method, NormalizePath(c.Request().URL.Path), status, time.Since(start))
			return err
		}
	}
}

// NormalizePath replaces identifier segments with ":id".
func NormalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if identifier.MatchString(part) {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
