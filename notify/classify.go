package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-auth-session/authapi"
)

// FallbackMessage is shown when an error carries no usable message
const FallbackMessage = "An unexpected error occurred"

// Message returns the user facing message for err. HTTP failures prefer the server supplied
// message and fall back to a fixed text per status; any other error shows its own message.
func Message(err error) string {
	if err == nil {
		return FallbackMessage
	}

	var httpErr *authapi.HTTPError
	if errors.As(err, &httpErr) {
		return statusMessage(httpErr.StatusCode, httpErr.Body.Detail())
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return FallbackMessage
}

func statusMessage(status int, detail string) string {
	if detail != "" {
		return detail
	}
	switch status {
	case http.StatusBadRequest:
		return "Bad request"
	case http.StatusUnauthorized:
		return "Unauthorized"
	case http.StatusForbidden:
		return "Access denied"
	case http.StatusNotFound:
		return "Not found"
	case http.StatusConflict:
		return "Conflict"
	case http.StatusInternalServerError:
		return "Internal server error"
	}
	return fmt.Sprintf("Server error: %d", status)
}

// StatusCode returns the HTTP status carried by err, 0 when there is none
func StatusCode(err error) int {
	var httpErr *authapi.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// swallowed errors are never shown: abandoned requests and errors marked Silent
func swallowed(err error) bool {
	return errors.Is(err, context.Canceled) || IsSilent(err)
}

func fingerprint(err error, message string, status int) string {
	return fmt.Sprintf("%T|%s|%d", rootCause(err), message, status)
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// toError normalizes whatever was handed to Handle
func toError(raw any) error {
	switch v := raw.(type) {
	case nil:
		return nil
	case error:
		return v
	case string:
		return errors.New(v)
	}
	return &PanicError{Value: raw}
}
