package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRemote       = errors.New("remote service error")
)

// Error codes carried by AppError.
const (
	CodeConfig  = "CONFIG_ERROR"
	CodeAuth    = "AUTH_ERROR"
	CodeRemote  = "REMOTE_ERROR"
	CodeDecode  = "DECODE_ERROR"
	CodeEncode  = "ENCODE_ERROR"
	CodeJournal = "JOURNAL_ERROR"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// StatusError builds the error returned for a non-2xx HTTP response.
// 401/403 unwrap to ErrUnauthorized, 404 to ErrNotFound, anything else to ErrRemote.
func StatusError(service string, status int, body []byte) error {
	cause := ErrRemote
	code := CodeRemote
	switch status {
	case 401, 403:
		cause = ErrUnauthorized
		code = CodeAuth
	case 404:
		cause = ErrNotFound
	}
	return NewAppError(code, fmt.Sprintf("%s status %d: %s", service, status, truncate(string(body), 512)), cause)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
