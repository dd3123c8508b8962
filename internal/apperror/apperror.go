// Package apperror defines the typed, statusable errors returned by the
// lifecycle layer and translated at the transport boundary.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an application error.
type Code string

const (
	CodeNotFound        Code = "NOT_FOUND"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeBadRequest      Code = "BAD_REQUEST"
	CodeConflict        Code = "CONFLICT"
	CodeTooManyRequests Code = "TOO_MANY_REQUESTS"
	CodeInternal        Code = "INTERNAL_ERROR"
)

// AppError carries a code, a user-facing message and optional structured details.
type AppError struct {
	Code     Code           `json:"code"`
	Message  string         `json:"message"`
	Details  string         `json:"details,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Cause    error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode maps the code to an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeInvalidState, CodeBadRequest:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *AppError) WithMetadata(key string, value any) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// WithCause records the underlying error.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// NotFound reports a missing (or not visible) resource.
func NotFound(resource, id string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource)).WithMetadata("id", id)
}

// Unauthorized reports access to a resource owned by another user.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "access to this resource is not allowed"
	}
	return New(CodeUnauthorized, message)
}

func InvalidState(message string) *AppError {
	return New(CodeInvalidState, message)
}

func BadRequest(message string) *AppError {
	return New(CodeBadRequest, message)
}

func Conflict(message string) *AppError {
	return New(CodeConflict, message)
}

// Is reports whether err is an AppError with the given code.
func Is(err error, code Code) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
