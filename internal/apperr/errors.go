package apperr

import (
	"errors"
	"fmt"
)

// Code classifies an AppError.
type Code string

const (
	CodeDuplicateUser      Code = "DUPLICATE_USER"
	CodeStorageUnavailable Code = "STORAGE_UNAVAILABLE"
	CodeNotFound           Code = "NOT_FOUND"
	CodeEmptyInput         Code = "EMPTY_INPUT"
	CodeMalformedInput     Code = "MALFORMED_INPUT"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeValidation         Code = "VALIDATION_ERROR"
)

// AppError represents a structured application error.
type AppError struct {
	Code    Code
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError carrying the same code, so the sentinels below work
// with errors.Is regardless of message or cause.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrDuplicateUser      = New(CodeDuplicateUser, "user already exists")
	ErrStorageUnavailable = New(CodeStorageUnavailable, "storage unavailable")
	ErrNotFound           = New(CodeNotFound, "not found")
	ErrEmptyInput         = New(CodeEmptyInput, "empty input")
	ErrMalformedInput     = New(CodeMalformedInput, "malformed input")
	ErrInvalidCredentials = New(CodeInvalidCredentials, "invalid credentials")
	ErrValidation         = New(CodeValidation, "validation failed")
)

// New creates a new AppError.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates a new AppError with a formatted message.
func Newf(code Code, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code and message to err. A nil err yields nil.
func Wrap(code Code, err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// GetCode returns the code of the outermost AppError in the chain, or "" when none.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
