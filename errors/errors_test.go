package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ValidationError, "invalid input", "field required")
	assert.Equal(t, ValidationError, err.Type)
	assert.Equal(t, "invalid input", err.Message)
	assert.Equal(t, "field required", err.Detail)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
}

func TestWrap(t *testing.T) {
	originalErr := fmt.Errorf("original error")
	wrappedErr := Wrap(originalErr, DatabaseError, "database operation failed")

	assert.Equal(t, DatabaseError, wrappedErr.Type)
	assert.Equal(t, originalErr.Error(), wrappedErr.Detail)
	assert.Equal(t, http.StatusInternalServerError, wrappedErr.HTTPStatus)
	assert.ErrorIs(t, wrappedErr, originalErr)
	assert.Nil(t, Wrap(nil, DatabaseError, "unused"))
}

func TestNewDatabaseError(t *testing.T) {
	originalErr := fmt.Errorf("connection failed")
	err := NewDatabaseError(originalErr)
	assert.Equal(t, DatabaseError, err.Type)
	assert.Equal(t, "Database operation failed", err.Message)
	assert.Equal(t, "Please try again later", err.Detail)
	assert.Equal(t, originalErr, err.Raw)
}

func TestAs(t *testing.T) {
	base := NotFound("Form", "f-1")
	wrapped := fmt.Errorf("loading form: %w", base)

	got, ok := As(wrapped)
	assert.True(t, ok)
	assert.Same(t, base, got)
	assert.True(t, IsType(wrapped, NotFoundError))
	assert.False(t, IsType(fmt.Errorf("plain"), NotFoundError))
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "with detail",
			err:      &AppError{Type: ValidationError, Message: "invalid input", Detail: "field required"},
			expected: "VALIDATION_ERROR: invalid input (field required)",
		},
		{
			name:     "without detail",
			err:      &AppError{Type: AuthError, Message: "unauthorized"},
			expected: "AUTHENTICATION_ERROR: unauthorized",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"not found", NotFound("Form", "x"), http.StatusNotFound},
		{"forbidden", Forbidden("nope", ""), http.StatusForbidden},
		{"locked form", FormLocked("f-1", "approved"), http.StatusConflict},
		{"unavailable form", FormUnavailable("budget"), http.StatusForbidden},
		{"transition", InvalidStatusTransition("approved", "pending"), http.StatusConflict},
		{"rate limit", RateLimitExceeded("slow down", ""), http.StatusTooManyRequests},
		{"external", ExternalService("resend", fmt.Errorf("boom")), http.StatusBadGateway},
		{"unauthorized", Unauthorized("token_expired", "expired"), http.StatusUnauthorized},
		{"zero status falls back to type", &AppError{Type: ConflictError}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.GetHTTPStatus())
		})
	}
}
