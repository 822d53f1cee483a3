package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorType classifies an error for the HTTP layer
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeInternal   ErrorType = "INTERNAL"
	ErrorTypeTimeout    ErrorType = "TIMEOUT"
	ErrorTypeNetwork    ErrorType = "NETWORK"
	ErrorTypeExternal   ErrorType = "EXTERNAL"
	ErrorTypeDatabase   ErrorType = "DATABASE"
)

// Error codes carried on AppError.Code
const (
	CodeUpstreamNotConfigured = "UPSTREAM_NOT_CONFIGURED"
	CodeUpstreamError         = "UPSTREAM_ERROR"
	CodeEndpointRemoved       = "ENDPOINT_REMOVED"
	CodeInvalidJSON           = "INVALID_JSON"
)

// AppError represents an application-specific error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
	HTTPStatus int                    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetail adds a single detail entry
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

func newAppError(t ErrorType, status int, message string) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		HTTPStatus: status,
		StackTrace: captureStackTrace(),
	}
}

func captureStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(4, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return b.String()
}

// NewValidationError creates a 400 error for malformed input
func NewValidationError(message string) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, message)
}

// NewInvalidJSONError reports a request body that is not valid JSON
func NewInvalidJSONError(err error) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, "request body must be a valid JSON object").
		WithCode(CodeInvalidJSON).
		WithCause(err)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, fmt.Sprintf("%s not found", resource))
}

// NewEndpointRemovedError answers calls to endpoints that no longer exist
func NewEndpointRemovedError(path, hint string) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, fmt.Sprintf("endpoint %s has been removed: %s", path, hint)).
		WithCode(CodeEndpointRemoved)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, message)
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, err error) *AppError {
	return newAppError(ErrorTypeDatabase, http.StatusInternalServerError, fmt.Sprintf("database operation '%s' failed", operation)).
		WithCause(err)
}

// NewUpstreamNotConfiguredError is returned before an upstream URL has been set
func NewUpstreamNotConfiguredError() *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest,
		"upstream API is not configured; POST {\"upstream\": \"http://host:port\"} to /config/upstream or set UPSTREAM_API").
		WithCode(CodeUpstreamNotConfigured)
}

// NewUpstreamError wraps a transport failure or bad response from the upstream service
func NewUpstreamError(operation string, err error) *AppError {
	return newAppError(ErrorTypeExternal, http.StatusBadGateway, fmt.Sprintf("upstream %s failed: %v", operation, err)).
		WithCode(CodeUpstreamError).
		WithCause(err)
}

// NewUpstreamStatusError reports a non-2xx upstream response
func NewUpstreamStatusError(operation string, status int, body string) *AppError {
	return newAppError(ErrorTypeExternal, http.StatusBadGateway, fmt.Sprintf("upstream %s returned %d: %s", operation, status, body)).
		WithCode(CodeUpstreamError).
		WithDetail("upstream_status", status)
}

// NewUpstreamTimeoutError reports an upstream call that exceeded its deadline
func NewUpstreamTimeoutError(operation string, err error) *AppError {
	return newAppError(ErrorTypeTimeout, http.StatusBadGateway, fmt.Sprintf("upstream %s timed out", operation)).
		WithCode(CodeUpstreamError).
		WithCause(err)
}

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// HasCode checks the Code of the first AppError in the chain
func HasCode(err error, code string) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}

// StatusOf returns the HTTP status an error maps to
func StatusOf(err error) int {
	if appErr := GetAppError(err); appErr != nil && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
