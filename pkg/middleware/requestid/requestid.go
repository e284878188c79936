// Package requestid tags every request with an identifier for log and trace correlation.
package requestid

import (
	"context"
	"regexp"

	"github.com/google/uuid"

	"github.com/mealboard/marketplace/pkg/observability/logger"
	"github.com/mealboard/marketplace/pkg/server/router"
)

// RequestIDHeader is the HTTP header name for request ID.
const RequestIDHeader = "X-Request-ID"

// validID bounds what a client may send as its own request ID.
var validID = regexp.MustCompile(`^[A-Za-z0-9._:\-]{1,128}$`)

// RequestID reuses a well-formed X-Request-ID header or generates a UUID,
// echoes it on the response and stores it on the request context.
func RequestID() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			requestID := c.Request().Header.Get(RequestIDHeader)
			if !validID.MatchString(requestID) {
				requestID = uuid.NewString()
			}

			c.Set(string(logger.RequestIDKey), requestID)
			c.Response().Header().Set(RequestIDHeader, requestID)

			ctx := context.WithValue(c.Request().Context(), logger.RequestIDKey, requestID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// GetRequestID extracts the request ID from a context.
func GetRequestID(ctx context.Context) string {
	return logger.RequestIDFromContext(ctx)
}
