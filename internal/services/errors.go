package services

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrOTPNotFound        = errors.New("one-time code not found or expired")
	ErrOTPInvalid         = errors.New("one-time code does not match")
	ErrOTPTooManyAttempts = errors.New("too many one-time code attempts")
	ErrOTPCooldown        = errors.New("one-time code requested too recently")
	ErrInvalidOTPPurpose  = errors.New("invalid one-time code purpose")
)

// AppError is an error with the HTTP status and client message it maps to.
// Err holds the underlying cause and is never shown to clients.
type AppError struct {
	Status  int
	Message string
	Errors  any
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NewBadRequest(message string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: message}
}

func NewNotFound(message string) *AppError {
	return &AppError{Status: http.StatusNotFound, Message: message}
}

func NewUnauthorized(message string) *AppError {
	return &AppError{Status: http.StatusUnauthorized, Message: message}
}

func NewForbidden(message string) *AppError {
	return &AppError{Status: http.StatusForbidden, Message: message}
}

func NewConflict(message string) *AppError {
	return &AppError{Status: http.StatusConflict, Message: message}
}

// NewValidation reports field level problems; details is rendered as "errors".
func NewValidation(message string, details any) *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: message, Errors: details}
}

func NewTooManyRequests(message string, err error) *AppError {
	return &AppError{Status: http.StatusTooManyRequests, Message: message, Err: err}
}

func NewInternal(message string, err error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Message: message, Err: err}
}

// AsAppError extracts an *AppError from err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
