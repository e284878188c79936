package controller

import (
	"net/http"

	"github.com/mealboard/marketplace/pkg/server/router"
)

// OK writes data as a JSON 200 response without an envelope.
func OK(c router.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

// Error sends an error response with the appropriate HTTP status code
// It uses MapError to convert application errors to HTTP responses
func Error(c router.Context, err error) error {
	statusCode, errorResponse := MapError(c.Request().Context(), err)
	return c.JSON(statusCode, errorResponse)
}
