package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Ledger & Balance Engine (LED) ----

func ErrInvalidAmount() *AppError {
	return New("LED_001", "Invalid amount", http.StatusBadRequest)
}

func ErrInsufficientFunds() *AppError {
	return New("LED_002", "Insufficient balance", http.StatusUnprocessableEntity)
}

func ErrInsufficientReserved() *AppError {
	return New("LED_003", "Insufficient reserved balance", http.StatusUnprocessableEntity)
}

func ErrNotMatureYet() *AppError {
	return New("LED_004", "Holding period has not elapsed", http.StatusUnprocessableEntity)
}

func ErrAlreadyMatured() *AppError {
	return New("LED_005", "Funds already matured for this entry", http.StatusConflict)
}

// ---- Payout Workflow (PAY) ----

func ErrBelowMinimum() *AppError {
	return New("PAY_001", "Amount below minimum payout threshold", http.StatusBadRequest)
}

func ErrRequestAlreadyPending() *AppError {
	return New("PAY_002", "A payout request is already pending for this vendor", http.StatusConflict)
}

func ErrInvalidPayoutState() *AppError {
	return New("PAY_003", "Payout request does not allow this action", http.StatusConflict)
}

func ErrTransferFailed(err error) *AppError {
	return Wrap("PAY_004", "External money movement failed, reservation released", http.StatusBadGateway, err)
}

// ---- Security & Authentication (SEC) ----

func ErrInvalidToken() *AppError {
	return New("SEC_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("SEC_002", "Insufficient role for this resource", http.StatusForbidden)
}

func ErrInvalidSignature() *AppError {
	return New("SEC_003", "Invalid signature", http.StatusUnauthorized)
}

func ErrTimestampExpired() *AppError {
	return New("SEC_004", "Request timestamp expired", http.StatusForbidden)
}

func ErrNonceUsed() *AppError {
	return New("SEC_005", "Nonce has already been used", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrStorage(err error) *AppError {
	return Wrap("SYS_001", "Ledger storage error", http.StatusInternalServerError, err)
}

func ErrNotFound(entity string) *AppError {
	return New("SYS_002", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a LED_001-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("LED_001", message, http.StatusBadRequest)
}
