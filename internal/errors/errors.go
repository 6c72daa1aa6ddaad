// Package errors defines the console's service-layer error type. Handlers turn an
// AppError's Code into an HTTP status and show its Message to the user.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes an AppError.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "not_found"
	ErrCodeValidation   ErrorCode = "validation"
	ErrCodeUnauthorized ErrorCode = "unauthorized"
	// ErrCodeForbidden means signed in but not permitted.
	ErrCodeForbidden ErrorCode = "forbidden"
	// ErrCodeSessionExpired means the tokens could not be refreshed and the session was ended.
	ErrCodeSessionExpired ErrorCode = "session_expired"
	// ErrCodeUpstream means the SIMS backend failed or was unreachable.
	ErrCodeUpstream ErrorCode = "upstream"
	ErrCodeInternal ErrorCode = "internal"
	ErrCodeTimeout  ErrorCode = "timeout"
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError carries a code, a user-facing message, and optionally the offending form
// field and the underlying cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Field   string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the cause and returns e.
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// New builds an AppError without a cause.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func NotFound(message string) *AppError     { return New(ErrCodeNotFound, message) }
func Validation(message string) *AppError   { return New(ErrCodeValidation, message) }
func Unauthorized(message string) *AppError { return New(ErrCodeUnauthorized, message) }
func Forbidden(message string) *AppError    { return New(ErrCodeForbidden, message) }

// ValidationField reports invalid input, naming the first offending form field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Wrap returns nil when err is nil.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// GetCode returns the code of the first AppError in err's chain, or "".
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the field of the first AppError in err's chain, or "".
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

func IsValidation(err error) bool     { return GetCode(err) == ErrCodeValidation }
func IsUnauthorized(err error) bool   { return GetCode(err) == ErrCodeUnauthorized }
func IsSessionExpired(err error) bool { return GetCode(err) == ErrCodeSessionExpired }
