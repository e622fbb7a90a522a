// Package errors defines the API error vocabulary. Handlers return an
// *AppError and the HTTP layer renders its code, message and status
// without further mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for errors.Is matching across layers.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrBadRequest    = errors.New("bad request")
	ErrConflict      = errors.New("resource conflict")
	ErrInternal      = errors.New("internal server error")
	ErrValidation    = errors.New("validation error")
	ErrRunInProgress = errors.New("task run already in progress")
)

// AppError carries the machine-readable code and HTTP status alongside
// the human-readable message.
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing resource, naming it in the message.
func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

// BadRequest reports a malformed request.
func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// Conflict reports a state conflict, such as acknowledging an alert twice.
func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// Internal reports an unexpected failure without leaking its cause.
func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// Validation reports per-field validation failures.
func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// RunInProgress signals that a pipeline task is already holding its run lock.
// Callers treat this as a skipped run, not a failure.
func RunInProgress(task string) *AppError {
	return &AppError{
		Err:        ErrRunInProgress,
		Code:       "RUN_IN_PROGRESS",
		Message:    fmt.Sprintf("%s run already in progress", task),
		StatusCode: http.StatusConflict,
	}
}

// Is and As re-export the stdlib helpers so callers need only one
// errors import.

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}
