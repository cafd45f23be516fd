package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation        ErrorType = "validation"
	ErrorTypeEmptyInput        ErrorType = "empty_input"
	ErrorTypeFileTooLarge      ErrorType = "file_too_large"
	ErrorTypeProviderUnavail   ErrorType = "provider_unavailable"
	ErrorTypeMalformedResponse ErrorType = "malformed_provider_response"
	ErrorTypeConflict          ErrorType = "conflict"
	ErrorTypeRateLimited       ErrorType = "rate_limited"
	ErrorTypeNetwork           ErrorType = "network"
	ErrorTypeTimeout           ErrorType = "timeout"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeInternal          ErrorType = "internal"
)

// AnalysisFailedMessage is shown to the user whenever the provider call fails
const AnalysisFailedMessage = "Analysis failed. Please try again or check your API key/connection."

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails returns a copy of the error carrying extra detail text
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func newAppError(t ErrorType, status int, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, message, cause)
}

// NewEmptyInputError is returned when a submission carries no text, URL or file
func NewEmptyInputError(message string) *AppError {
	if message == "" {
		message = "provide text, a URL or a file to analyze"
	}
	return newAppError(ErrorTypeEmptyInput, http.StatusBadRequest, message, nil)
}

// NewFileTooLargeError is returned when an upload exceeds the configured limit
func NewFileTooLargeError(size, limit int64) *AppError {
	msg := fmt.Sprintf("file exceeds the maximum size of %d bytes", limit)
	if size > 0 {
		msg = fmt.Sprintf("file of %d bytes exceeds the maximum size of %d bytes", size, limit)
	}
	return newAppError(ErrorTypeFileTooLarge, http.StatusRequestEntityTooLarge, msg, nil)
}

// NewProviderUnavailableError covers network failures, timeouts and non-2xx provider replies
func NewProviderUnavailableError(message string, cause error) *AppError {
	return newAppError(ErrorTypeProviderUnavail, http.StatusBadGateway, message, cause)
}

// NewMalformedResponseError is returned when a provider reply fails strict parsing
func NewMalformedResponseError(message string, cause error) *AppError {
	return newAppError(ErrorTypeMalformedResponse, http.StatusBadGateway, message, cause)
}

// NewConflictError creates a new conflict error
func NewConflictError(message string, cause error) *AppError {
	return newAppError(ErrorTypeConflict, http.StatusConflict, message, cause)
}

// NewRateLimitedError creates a new rate limit error
func NewRateLimitedError(message string) *AppError {
	return newAppError(ErrorTypeRateLimited, http.StatusTooManyRequests, message, nil)
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return newAppError(ErrorTypeNetwork, http.StatusBadGateway, message, cause)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return newAppError(ErrorTypeTimeout, http.StatusGatewayTimeout, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, message, cause)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, message, cause)
}

// As extracts the first AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	if appErr, ok := As(err); ok {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
