package utils

import (
	"errors"
	"net/http"
)

// AppError is an expected failure with a client-facing status and messages.
type AppError struct {
	Status  int
	Message string
	Errors  []string
}

func (e *AppError) Error() string {
	return e.Message
}

func newAppError(status int, message string, errs []string) *AppError {
	if len(errs) == 0 {
		errs = []string{message}
	}
	return &AppError{Status: status, Message: message, Errors: errs}
}

// BadRequest reports invalid input, optionally with field-level messages.
func BadRequest(message string, errs ...string) *AppError {
	return newAppError(http.StatusBadRequest, message, errs)
}

func Unauthorized(message string) *AppError {
	return newAppError(http.StatusUnauthorized, message, nil)
}

func Forbidden(message string) *AppError {
	return newAppError(http.StatusForbidden, message, nil)
}

func NotFound(message string) *AppError {
	return newAppError(http.StatusNotFound, message, nil)
}

func Conflict(message string) *AppError {
	return newAppError(http.StatusConflict, message, nil)
}

func TooManyRequests(message string) *AppError {
	return newAppError(http.StatusTooManyRequests, message, nil)
}

// Internal is the only shape a 500 ever takes on the wire.
func Internal() *AppError {
	return newAppError(http.StatusInternalServerError, "Internal server error", []string{"An unexpected error occurred"})
}

// AsAppError unwraps err into an AppError, collapsing anything unexpected into Internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal()
}
