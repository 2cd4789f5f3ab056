package notify

import (
	"errors"
	"fmt"
)

// PanicError wraps a value recovered from a panic
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(e.Value)
}

func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

type silentError struct {
	err error
}

func (e *silentError) Error() string { return e.err.Error() }
func (e *silentError) Unwrap() error { return e.err }

// Silent marks err as never shown to the user. Handle logs it at debug level only.
func Silent(err error) error {
	if err == nil {
		return nil
	}
	return &silentError{err: err}
}

// IsSilent reports whether err was marked with Silent
func IsSilent(err error) bool {
	var silent *silentError
	return errors.As(err, &silent)
}
