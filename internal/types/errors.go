package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific error type
type ErrorCode string

const (
	// Authorization errors
	ErrWrongChannel     ErrorCode = "WRONG_CHANNEL"
	ErrPermissionDenied ErrorCode = "PERMISSION_DENIED"

	// Backend errors
	ErrBackendTimeout ErrorCode = "BACKEND_TIMEOUT"
	ErrBackendStatus  ErrorCode = "BACKEND_STATUS"
	ErrNetworkError   ErrorCode = "NETWORK_ERROR"

	// Command errors
	ErrInvalidCommand ErrorCode = "INVALID_COMMAND"

	// System errors
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// DuelError is an error tagged with a code so handlers can pick the reply
// without inspecting the cause.
type DuelError struct {
	Code    ErrorCode
	Message string
	Err     error // Underlying error, if any
}

// Error implements the error interface
func (e *DuelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DuelError) Unwrap() error {
	return e.Err
}

// NewDuelError creates a new DuelError
func NewDuelError(code ErrorCode, message string) *DuelError {
	return &DuelError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error in a DuelError
func WrapError(code ErrorCode, message string, err error) *DuelError {
	return &DuelError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsDuelError checks if an error is a DuelError and has a specific code
func IsDuelError(err error, code ErrorCode) bool {
	var duelErr *DuelError
	if err == nil {
		return false
	}
	if ok := As(err, &duelErr); !ok {
		return false
	}
	return duelErr.Code == code
}

// As finds the first DuelError in err's chain
func As(err error, target **DuelError) bool {
	if target == nil || err == nil {
		return false
	}
	return errors.As(err, target)
}
