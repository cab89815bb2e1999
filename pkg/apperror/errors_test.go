package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("LED_002", "Insufficient balance", http.StatusUnprocessableEntity),
			expected: "[LED_002] Insufficient balance",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("LED_001", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestLedgerErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidAmount", ErrInvalidAmount(), "LED_001", 400},
		{"InsufficientFunds", ErrInsufficientFunds(), "LED_002", 422},
		{"InsufficientReserved", ErrInsufficientReserved(), "LED_003", 422},
		{"NotMatureYet", ErrNotMatureYet(), "LED_004", 422},
		{"AlreadyMatured", ErrAlreadyMatured(), "LED_005", 409},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestPayoutErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"BelowMinimum", ErrBelowMinimum(), "PAY_001", 400},
		{"RequestAlreadyPending", ErrRequestAlreadyPending(), "PAY_002", 409},
		{"InvalidPayoutState", ErrInvalidPayoutState(), "PAY_003", 409},
		{"TransferFailed", ErrTransferFailed(fmt.Errorf("bank down")), "PAY_004", 502},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestSystemErrors(t *testing.T) {
	storageErr := ErrStorage(fmt.Errorf("write failed"))
	assert.Equal(t, "SYS_001", storageErr.Code)
	assert.Equal(t, http.StatusInternalServerError, storageErr.HTTPStatus)
	assert.Contains(t, storageErr.Error(), "write failed")

	notFound := ErrNotFound("wallet")
	assert.Equal(t, "SYS_002", notFound.Code)
	assert.Equal(t, "wallet not found", notFound.Message)
}
