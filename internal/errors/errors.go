package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session client
var (
	// Token errors
	ErrMalformedToken = errors.New("malformed token")
	ErrTokenExpired   = errors.New("token expired")

	// Session errors
	ErrNoSession = errors.New("no active session")

	// Refresh errors
	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrRefreshFailed  = errors.New("token refresh failed")

	// Request errors
	ErrAuthExpired      = errors.New("authentication expired")
	ErrTransientRequest = errors.New("request failed")
	ErrUnexpectedBody   = errors.New("unexpected response body")
	ErrInvalidInput     = errors.New("invalid input")

	// Storage errors
	ErrStorage       = errors.New("storage error")
	ErrCorruptRecord = errors.New("corrupt stored record")

	// General errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrUnsupported   = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
