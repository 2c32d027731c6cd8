package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrInvalidInput, ErrUnauthorized, ErrForbidden,
		ErrInternal, ErrConflict, ErrGone, ErrRateLimited, ErrServiceUnavail,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

func TestAppError_ErrorString_WithWrappedError(t *testing.T) {
	inner := fmt.Errorf("connection reset")
	appErr := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: inner}
	assert.Contains(t, appErr.Error(), "INTERNAL_ERROR")
	assert.Contains(t, appErr.Error(), "something broke")
	assert.Contains(t, appErr.Error(), "connection reset")
}

func TestAppError_ErrorString_WithoutWrappedError(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "course not found"}
	assert.Equal(t, "NOT_FOUND: course not found", appErr.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "nope", Err: ErrNotFound}
	assert.True(t, errors.Is(appErr, ErrNotFound))
}

func TestNotFound(t *testing.T) {
	err := NotFound("course", "42")
	require.NotNil(t, err)
	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Contains(t, err.Message, "course")
	assert.Contains(t, err.Message, "42")
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestInvalidInput(t *testing.T) {
	err := InvalidInput("email is required")
	assert.Equal(t, "INVALID_INPUT", err.Code)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestUnauthorized(t *testing.T) {
	err := Unauthorized("token expired")
	assert.Equal(t, http.StatusUnauthorized, err.Status)
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status   int
		code     string
		sentinel error
	}{
		{http.StatusBadRequest, "INVALID_INPUT", ErrInvalidInput},
		{http.StatusUnauthorized, "UNAUTHORIZED", ErrUnauthorized},
		{http.StatusForbidden, "FORBIDDEN", ErrForbidden},
		{http.StatusNotFound, "NOT_FOUND", ErrNotFound},
		{http.StatusConflict, "CONFLICT", ErrConflict},
		{http.StatusTooManyRequests, "RATE_LIMITED", ErrRateLimited},
		{http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", ErrServiceUnavail},
		{http.StatusBadGateway, "UPSTREAM_ERROR", ErrInternal},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := FromStatus(tt.status, "", "boom")
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.status, err.Status)
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestFromStatus_KeepsExplicitCode(t *testing.T) {
	err := FromStatus(http.StatusBadRequest, "token_not_valid", "Token is invalid or expired")
	assert.Equal(t, "token_not_valid", err.Code)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFromStatus_UnmappedStatusHasNoSentinel(t *testing.T) {
	err := FromStatus(http.StatusTeapot, "", "short and stout")
	assert.Equal(t, "HTTP_418", err.Code)
	assert.Nil(t, err.Unwrap())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("lesson", "1")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("wrapped: %w", ErrNotFound)))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(ErrUnauthorized))
	assert.Equal(t, http.StatusTooManyRequests, HTTPStatus(ErrRateLimited))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("mystery")))
}

func TestIsStatus(t *testing.T) {
	err := fmt.Errorf("get course: %w", FromStatus(http.StatusUnauthorized, "", "expired"))
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.False(t, IsStatus(err, http.StatusForbidden))
	assert.False(t, IsStatus(errors.New("plain"), http.StatusUnauthorized))
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrNotFound, "get lesson")
	assert.Equal(t, "get lesson: resource not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
}
