package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mealboard/marketplace/pkg/observability/logger"
)

// Kind classifies an application error independently of transport.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindInvalidArgument Kind = "invalid_argument"
	KindConflict        Kind = "conflict"
	KindInternal        Kind = "internal"
)

// AppError is the single application error contract shared across layers.
// Two AppErrors match under errors.Is when their codes are equal, so domain
// packages can expose sentinels and still return errors with request details.
type AppError struct {
	Code            string
	Kind            Kind
	FallbackMessage string
	Details         map[string]interface{}
	HTTPStatus      int
	Cause           error
}

// NewError creates an AppError with a stable code.
func NewError(kind Kind, code, message string) *AppError {
	return &AppError{
		Code:            code,
		Kind:            kind,
		FallbackMessage: message,
	}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	label := e.Code
	if e.FallbackMessage != "" {
		label = e.FallbackMessage
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", label, e.Cause)
	}
	return label
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

// WithMessage returns a copy carrying message.
func (e *AppError) WithMessage(message string) *AppError {
	cp := e.clone()
	cp.FallbackMessage = message
	return cp
}

// WithDetails returns a copy carrying details.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	cp := e.clone()
	cp.Details = details
	return cp
}

// WithHTTPStatus returns a copy answered with status regardless of kind.
func (e *AppError) WithHTTPStatus(status int) *AppError {
	cp := e.clone()
	cp.HTTPStatus = status
	return cp
}

// WithCause returns a copy wrapping cause.
func (e *AppError) WithCause(cause error) *AppError {
	cp := e.clone()
	cp.Cause = cause
	return cp
}

func (e *AppError) clone() *AppError {
	if e == nil {
		return &AppError{}
	}
	cp := *e
	if e.Details != nil {
		cp.Details = make(map[string]interface{}, len(e.Details))
		for k, v := range e.Details {
			cp.Details[k] = v
		}
	}
	return &cp
}

// KindOf returns the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Kind != "" {
		return appErr.Kind
	}
	return KindInternal
}

// ErrorResponse represents the consistent error response format.
type ErrorResponse struct {
	Error     string                 `json:"error"`
	Code      string                 `json:"code,omitempty"`
	Message   string                 `json:"message,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// MapError maps application errors to HTTP responses.
func MapError(ctx context.Context, err error) (int, ErrorResponse) {
	requestID := logger.RequestIDFromContext(ctx)

	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, ErrorResponse{
			Error:     "internal_server_error",
			Message:   "an unexpected error occurred",
			RequestID: requestID,
		}
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = statusForKind(appErr.Kind)
	}
	if status == 0 {
		status = inferStatusFromCode(appErr.Code)
	}

	message := appErr.FallbackMessage
	if status >= 500 {
		// Store and driver failures are not echoed to clients.
		message = "an unexpected error occurred"
	} else if message == "" {
		message = appErr.Code
	}

	return status, ErrorResponse{
		Error:     errorCategory(status),
		Code:      appErr.Code,
		Message:   message,
		RequestID: requestID,
		Details:   appErr.Details,
	}
}

// NewValidationError creates a new invalid-argument error.
func NewValidationError(message string, details map[string]interface{}) *AppError {
	return &AppError{
		Code:            "validation.failed",
		Kind:            KindInvalidArgument,
		FallbackMessage: message,
		Details:         details,
	}
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(message string) *AppError {
	return NewError(KindNotFound, "resource.not_found", message)
}

// NewConflictError creates a new conflict error.
func NewConflictError(message string, details map[string]interface{}) *AppError {
	return NewError(KindConflict, "resource.conflict", message).WithDetails(details)
}

// NewInternalError creates a new internal error with optional cause.
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Code:            "internal.error",
		Kind:            KindInternal,
		FallbackMessage: message,
		Cause:           cause,
	}
}

func statusForKind(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return 0
	}
}

func errorCategory(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		if status >= 500 {
			return "internal_server_error"
		}
		return "application_error"
	}
}

func inferStatusFromCode(code string) int {
	lowerCode := strings.ToLower(strings.TrimSpace(code))
	switch {
	case strings.HasPrefix(lowerCode, "validation."):
		return http.StatusBadRequest
	case strings.Contains(lowerCode, "not_found"):
		return http.StatusNotFound
	case strings.Contains(lowerCode, "conflict"):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
