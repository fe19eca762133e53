package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Sentinel error identity ---

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrInvalidInput, ErrAuthRequired, ErrAlreadyDone,
		ErrValidation, ErrInFlight, ErrUnavailable, ErrInternal,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

// --- AppError behavior ---

func TestAppError_ErrorString_WithWrappedError(t *testing.T) {
	inner := fmt.Errorf("connection reset")
	appErr := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: inner}
	assert.Contains(t, appErr.Error(), "INTERNAL_ERROR")
	assert.Contains(t, appErr.Error(), "something broke")
	assert.Contains(t, appErr.Error(), "connection reset")
}

func TestAppError_ErrorString_WithoutWrappedError(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "cart line not found"}
	assert.Equal(t, "NOT_FOUND: cart line not found", appErr.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "nope", Err: ErrNotFound}
	assert.True(t, errors.Is(appErr, ErrNotFound))
}

// --- Constructor functions ---

func TestNotFound(t *testing.T) {
	err := NotFound("cart line", "p-123")
	require.NotNil(t, err)
	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Contains(t, err.Message, "cart line")
	assert.Contains(t, err.Message, "p-123")
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAuthRequired(t *testing.T) {
	err := AuthRequired("session is no longer valid")
	assert.Equal(t, "AUTH_REQUIRED", err.Code)
	assert.Equal(t, http.StatusUnauthorized, err.Status)
	assert.True(t, errors.Is(err, ErrAuthRequired))
}

func TestAlreadyDone(t *testing.T) {
	err := AlreadyDone("wishlist entry")
	assert.Equal(t, "ALREADY_DONE", err.Code)
	assert.Contains(t, err.Message, "wishlist entry")
	assert.True(t, errors.Is(err, ErrAlreadyDone))
}

func TestValidation(t *testing.T) {
	err := Validation("quantity exceeds stock")
	assert.Equal(t, "VALIDATION_REJECTED", err.Code)
	assert.Equal(t, "quantity exceeds stock", err.Message)
	assert.Equal(t, http.StatusUnprocessableEntity, err.Status)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestInFlight(t *testing.T) {
	err := InFlight("add", "p-9")
	assert.Equal(t, "OPERATION_IN_FLIGHT", err.Code)
	assert.Contains(t, err.Message, "add")
	assert.Contains(t, err.Message, "p-9")
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.True(t, errors.Is(err, ErrInFlight))
}

func TestUnavailable(t *testing.T) {
	err := Unavailable("commerce api returned status 503")
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", err.Code)
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

// --- Wrap and HTTPStatus ---

func TestWrap_PreservesSentinel(t *testing.T) {
	err := Wrap(ErrNotFound, "load session record")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "load session record")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{NotFound("x", "1"), http.StatusNotFound},
		{InvalidInput("bad"), http.StatusBadRequest},
		{AuthRequired("no"), http.StatusUnauthorized},
		{Validation("no"), http.StatusUnprocessableEntity},
		{InFlight("add", "p"), http.StatusConflict},
		{Unavailable("down"), http.StatusServiceUnavailable},
		{Wrap(ErrAuthRequired, "ctx"), http.StatusUnauthorized},
		{Wrap(ErrInFlight, "ctx"), http.StatusConflict},
		{errors.New("mystery"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.err), "error: %v", tt.err)
	}
}
