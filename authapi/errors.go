package authapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-auth-session/internal/errors"
)

// BodyKind tags the shape of an error response body
type BodyKind int

const (
	BodyEmpty BodyKind = iota
	BodyJSON
	BodyText
)

// FieldError is one entry of a validation error map
type FieldError struct {
	Field   string
	Message string
}

// ErrorBody is the decoded body of a failed response. Only the fields matching Kind are set.
type ErrorBody struct {
	Kind       BodyKind
	Message    string       // "message" field
	Validation []FieldError // "errors" object, else "data" object, in document order
	ErrorText  string       // "error" field
	Text       string       // raw body when it is not a JSON object
}

// Detail returns the most specific server supplied message, "" when there is none
func (b ErrorBody) Detail() string {
	if b.Message != "" {
		return b.Message
	}
	if len(b.Validation) > 0 {
		return b.Validation[0].Message
	}
	return b.ErrorText
}

// ParseErrorBody never fails; anything that is not a JSON object is kept as text
func ParseErrorBody(data []byte) ErrorBody {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ErrorBody{Kind: BodyEmpty}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return ErrorBody{Kind: BodyText, Text: string(trimmed)}
	}

	body := ErrorBody{
		Kind:      BodyJSON,
		Message:   jsonString(fields["message"]),
		ErrorText: jsonString(fields["error"]),
	}
	body.Validation = orderedFields(fields["errors"])
	if len(body.Validation) == 0 {
		body.Validation = orderedFields(fields["data"])
	}
	return body
}

// HTTPError is returned for non-2xx responses and for 2xx envelopes with success=false
type HTTPError struct {
	StatusCode int
	Method     string
	URL        string
	Body       ErrorBody
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	if detail := e.Body.Detail(); detail != "" {
		msg += ": " + detail
	}
	return msg
}

// Is maps 401 to ErrAuthExpired and every other status to ErrTransientRequest
func (e *HTTPError) Is(target error) bool {
	switch target {
	case errors.ErrAuthExpired:
		return e.StatusCode == http.StatusUnauthorized
	case errors.ErrTransientRequest:
		return e.StatusCode != http.StatusUnauthorized
	}
	return false
}

func newHTTPError(req *http.Request, statusCode int, body []byte) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Method:     req.Method,
		URL:        req.URL.Redacted(),
		Body:       ParseErrorBody(body),
	}
}

func jsonString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// orderedFields reads the messages of a JSON object in document order.
// A value is either a string or an array whose first non-empty string is used.
func orderedFields(raw json.RawMessage) []FieldError {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}

	var out []FieldError
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return out
		}
		key, _ := keyTok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return out
		}
		if msg := fieldMessage(value); msg != "" {
			out = append(out, FieldError{Field: key, Message: msg})
		}
	}
	return out
}

func fieldMessage(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
