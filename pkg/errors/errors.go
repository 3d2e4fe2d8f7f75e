package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrServiceUnavail = errors.New("service unavailable")
)

// Cart view model failure taxonomy. Every error surfaced by a cart operation
// matches exactly one of these with errors.Is.
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrValidationRejected = errors.New("validation rejected")
	ErrNetwork            = errors.New("network error")
	ErrStaleStock         = errors.New("stale stock")
)

// Kind is the discriminated failure reason of a cart operation.
type Kind string

const (
	KindNone               Kind = ""
	KindUnauthenticated    Kind = "unauthenticated"
	KindValidationRejected Kind = "validation_rejected"
	KindNetwork            Kind = "network"
	KindStaleStock         Kind = "stale_stock"
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Unauthenticated creates an error for a missing or rejected session.
// Callers are expected to send the user to sign-in.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHENTICATED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthenticated,
	}
}

// ValidationRejected creates an error for a request the remote (or a local
// precondition) refused. Message is shown to the user verbatim.
func ValidationRejected(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_REJECTED",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrValidationRejected,
	}
}

// Network creates an error for a request that could not complete or that the
// remote failed for an unexpected reason.
func Network(message string, cause error) *AppError {
	err := ErrNetwork
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrNetwork, cause)
	}
	return &AppError{
		Code:    "NETWORK_ERROR",
		Message: message,
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

// StaleStock creates an error for a quantity update refused because stock
// changed since the last sync.
func StaleStock(message string) *AppError {
	return &AppError{
		Code:    "STALE_STOCK",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrStaleStock,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// KindOf classifies err into the cart failure taxonomy. Errors outside the
// taxonomy are reported as KindNetwork since the caller cannot act on them
// other than by retrying.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrValidationRejected):
		return KindValidationRejected
	case errors.Is(err, ErrStaleStock):
		return KindStaleStock
	default:
		return KindNetwork
	}
}

// Message returns the user-facing message of err.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrStaleStock):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidationRejected):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
