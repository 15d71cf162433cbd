package errors

import (
	"fmt"
	"net/http"
)

// ErrorType categorizes pipeline failures.
type ErrorType string

const (
	// ErrorTypeDecode marks an unreadable or unsupported image. Fatal for the request.
	ErrorTypeDecode ErrorType = "decode"
	// ErrorTypeInference marks a model call that failed or timed out. Fatal only
	// when raised by the concept scorer.
	ErrorTypeInference ErrorType = "inference"
	// ErrorTypeTimeout marks an exceeded per-request budget. Fatal.
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeNotFound marks a lookup of an unknown concept id.
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeValidation marks a rejected request payload.
	ErrorTypeValidation ErrorType = "validation"
)

// AppError is a structured application error carrying its category and the
// HTTP status the transport should answer with.
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewDecodeError creates an error for an image that could not be decoded.
func NewDecodeError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeDecode,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewInferenceError creates an error for a failed model call.
func NewInferenceError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInference,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewTimeoutError creates an error for an exceeded request budget.
func NewTimeoutError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTimeout,
		Message:    message,
		StatusCode: http.StatusGatewayTimeout,
		Cause:      cause,
	}
}

// NewNotFoundError creates an error for an unknown concept id.
func NewNotFoundError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
		Cause:      cause,
	}
}

// NewValidationError creates an error for a rejected request.
func NewValidationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, errorType ErrorType) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error, defaulting to 500.
func GetStatusCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
