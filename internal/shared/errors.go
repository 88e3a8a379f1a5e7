package shared

import (
	"errors"
	"net/http"
)

// Error kinds, used as the error_type label on http_errors_total.
const (
	KindNotFound    = "not_found"
	KindValidation  = "validation_failed"
	KindStore       = "store_error"
	KindSetup       = "setup_error"
	KindRateLimited = "rate_limited"
	KindInternal    = "internal_error"
)

// AppError is the single error type the finalizer understands. Status decides
// the client-visible HTTP code, Message the client-visible text. Err keeps
// the underlying cause for logs and span exceptions, never for clients.
type AppError struct {
	Status  int
	Kind    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(message string) *AppError {
	return &AppError{Status: http.StatusNotFound, Kind: KindNotFound, Message: message}
}

func ValidationFailed(message string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Kind: KindValidation, Message: message}
}

func RateLimited(message string) *AppError {
	return &AppError{Status: http.StatusTooManyRequests, Kind: KindRateLimited, Message: message}
}

func StoreError(err error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Kind: KindStore, Message: "Internal Server Error", Err: err}
}

func SetupError(err error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Kind: KindSetup, Message: "Internal Server Error", Err: err}
}

// StatusOf resolves the HTTP status declared by err, defaulting to 500.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// KindOf resolves the error kind label for err.
func KindOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf resolves the client-facing message. Untyped errors collapse to a
// generic message so internals never leak to the client.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "Internal Server Error"
}
