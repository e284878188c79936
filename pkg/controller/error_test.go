package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/mealboard/marketplace/pkg/observability/logger"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		want     string
	}{
		{
			name:     "error without cause",
			appError: NewValidationError("validation failed", nil),
			want:     "validation failed",
		},
		{
			name:     "error with cause",
			appError: NewInternalError("database error", errors.New("connection timeout")),
			want:     "database error: connection timeout",
		},
		{
			name:     "code only",
			appError: &AppError{Code: "listing.not_found"},
			want:     "listing.not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appError.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_IsMatchesByCode(t *testing.T) {
	sentinel := NewError(KindNotFound, "listing.not_found", "listing not found")
	detailed := sentinel.WithDetails(map[string]interface{}{"id": "abc"})
	wrapped := fmt.Errorf("load: %w", detailed)

	if !errors.Is(wrapped, sentinel) {
		t.Error("expected wrapped detailed error to match sentinel")
	}
	if errors.Is(wrapped, NewNotFoundError("other")) {
		t.Error("errors with different codes must not match")
	}
	if sentinel.Details != nil {
		t.Error("WithDetails mutated the sentinel")
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	appErr := NewInternalError("boom", cause)

	if !errors.Is(appErr, cause) {
		t.Errorf("expected errors.Is to reach cause")
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(fmt.Errorf("x: %w", NewValidationError("bad", nil))); got != KindInvalidArgument {
		t.Errorf("KindOf() = %v, want invalid_argument", got)
	}
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("KindOf(plain) = %v, want internal", got)
	}
}

func TestMapError(t *testing.T) {
	ctxWithID := context.WithValue(context.Background(), logger.RequestIDKey, "req-1")

	tests := []struct {
		name          string
		err           error
		ctx           context.Context
		wantStatus    int
		wantCategory  string
		wantMessage   string
		wantRequestID string
	}{
		{
			name:         "not found kind",
			err:          NewError(KindNotFound, "listing.not_found", "listing not found"),
			ctx:          context.Background(),
			wantStatus:   http.StatusNotFound,
			wantCategory: "not_found",
			wantMessage:  "listing not found",
		},
		{
			name:          "invalid argument kind",
			err:           NewValidationError("minPrice is not a number", nil),
			ctx:           ctxWithID,
			wantStatus:    http.StatusBadRequest,
			wantCategory:  "validation_error",
			wantMessage:   "minPrice is not a number",
			wantRequestID: "req-1",
		},
		{
			name:         "explicit status override",
			err:          NewError(KindNotFound, "listing.not_found", "listing not found").WithHTTPStatus(http.StatusBadRequest),
			ctx:          context.Background(),
			wantStatus:   http.StatusBadRequest,
			wantCategory: "validation_error",
			wantMessage:  "listing not found",
		},
		{
			name:         "internal hides cause",
			err:          NewInternalError("mongo exploded", errors.New("socket closed")),
			ctx:          context.Background(),
			wantStatus:   http.StatusInternalServerError,
			wantCategory: "internal_server_error",
			wantMessage:  "an unexpected error occurred",
		},
		{
			name:         "unknown error",
			err:          errors.New("plain"),
			ctx:          context.Background(),
			wantStatus:   http.StatusInternalServerError,
			wantCategory: "internal_server_error",
			wantMessage:  "an unexpected error occurred",
		},
		{
			name:         "status inferred from code",
			err:          &AppError{Code: "validation.price", FallbackMessage: "bad price"},
			ctx:          context.Background(),
			wantStatus:   http.StatusBadRequest,
			wantCategory: "validation_error",
			wantMessage:  "bad price",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := MapError(tt.ctx, tt.err)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if resp.Error != tt.wantCategory {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantCategory)
			}
			if resp.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", resp.Message, tt.wantMessage)
			}
			if resp.RequestID != tt.wantRequestID {
				t.Errorf("request_id = %q, want %q", resp.RequestID, tt.wantRequestID)
			}
		})
	}
}
