package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// API error codes
const (
	CodeValidationError      = "VALIDATION_ERROR"
	CodeNotFound             = "RESOURCE_NOT_FOUND"
	CodeBadRequest           = "BAD_REQUEST"
	CodeUnsupportedMediaType = "INVALID_CONTENT_TYPE"
	CodeInternalError        = "INTERNAL_ERROR"
	CodeServiceUnavailable   = "SERVICE_UNAVAILABLE"
	CodeCapacityUnavailable  = "CAPACITY_UNAVAILABLE"
	CodeTimeout              = "TIMEOUT"
	CodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
)

// AppError is an error the API can render: a stable code, a message for the
// caller and the HTTP status to answer with.
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
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

// WithDetails replaces the error details
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail sets a single detail
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Wrap records the underlying cause
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// NewAppError creates a new AppError
func NewAppError(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// ErrValidation rejects caller input
func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

// ErrValidationWithFields rejects caller input with one message per field
func ErrValidationWithFields(message string, fields map[string]string) *AppError {
	return ErrValidation(message).WithDetails(fields)
}

// ErrBadRequest rejects a request that could not be decoded
func ErrBadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest)
}

// ErrUnsupportedMediaType rejects a request body that is not JSON
func ErrUnsupportedMediaType(contentType string) *AppError {
	return NewAppError(CodeUnsupportedMediaType, "Content-Type must be application/json", http.StatusUnsupportedMediaType).
		WithDetail("contentType", contentType)
}

// ErrNotFound reports a missing resource
func ErrNotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ErrNotFoundWithID reports a missing resource and its identifier
func ErrNotFoundWithID(resource, id string) *AppError {
	return ErrNotFound(resource).WithDetail("id", id)
}

// ErrInternal hides an unexpected failure behind a generic message
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return NewAppError(CodeInternalError, message, http.StatusInternalServerError)
}

// ErrServiceUnavailable reports a dependency that is refusing calls, such
// as a data source behind an open circuit breaker.
func ErrServiceUnavailable(dependency string) *AppError {
	return NewAppError(CodeServiceUnavailable, fmt.Sprintf("%s is temporarily unavailable", dependency), http.StatusServiceUnavailable).
		WithDetail("dependency", dependency)
}

// ErrCapacityUnavailable is returned when warehouse capacity cannot be read,
// which makes any admission decision impossible.
func ErrCapacityUnavailable(warehouseID string) *AppError {
	return NewAppError(CodeCapacityUnavailable, "failed to query warehouse capacity", http.StatusServiceUnavailable).
		WithDetail("warehouseId", warehouseID)
}

// ErrTimeout reports an operation that ran out of time
func ErrTimeout(operation string) *AppError {
	return NewAppError(CodeTimeout, fmt.Sprintf("%s timed out", operation), http.StatusGatewayTimeout)
}

// ErrRateLimitExceeded rejects a caller that used up its window on endpoint
func ErrRateLimitExceeded(endpoint string, limit int) *AppError {
	return NewAppError(CodeRateLimitExceeded, "rate limit exceeded", http.StatusTooManyRequests).
		WithDetail("endpoint", endpoint).
		WithDetail("limit", strconv.Itoa(limit))
}

// AsAppError finds the first AppError in err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromError returns the AppError in err's chain, or an internal error
// wrapping err when there is none.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return ErrInternal("").Wrap(err)
}

// notFounder and invalider are implemented by domain errors that classify
// themselves.
type notFounder interface{ NotFound() bool }

type invalider interface{ Invalid() bool }

// MapDomainError maps err to the AppError the API renders. Errors that
// report NotFound become 404s, errors that report Invalid become 400s and
// deadlines become 504s. Anything else is internal.
func MapDomainError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	var nf notFounder
	if errors.As(err, &nf) && nf.NotFound() {
		return NewAppError(CodeNotFound, err.Error(), http.StatusNotFound).Wrap(err)
	}
	var inv invalider
	if errors.As(err, &inv) && inv.Invalid() {
		return ErrValidation(err.Error()).Wrap(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout("operation").Wrap(err)
	}
	return FromError(err)
}
