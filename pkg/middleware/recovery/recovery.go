// Package recovery turns handler panics into JSON 500 responses.
package recovery

import (
	"net/http"
	"runtime/debug"

	"github.com/mealboard/marketplace/pkg/controller"
	"github.com/mealboard/marketplace/pkg/observability/logger"
	"github.com/mealboard/marketplace/pkg/server/router"
)

// Recovery recovers panics, logs them with a stack trace and answers 500
// unless the handler already started writing.
func Recovery(log logger.Logger) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				ctx := c.Request().Context()
				log.WithContext(ctx).Error("panic recovered",
					"panic", r,
					"method", c.Request().Method,
					"path", c.Request().URL.Path,
					"stack", string(debug.Stack()),
				)

				if c.Response().Written() {
					return
				}
				status, body := controller.MapError(ctx, controller.NewInternalError("panic", nil))
				if writeErr := c.JSON(status, body); writeErr != nil {
					log.Error("failed to send error response", "error", writeErr)
				}
				err = nil
			}()

			return next(c)
		}
	}
}
