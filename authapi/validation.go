package authapi

import (
	"strings"
	"unicode/utf8"

	"github.com/jrsteele09/go-auth-session/internal/errors"
)

const (
	minPasswordLength = 8
	minNameLength     = 2
	maxNameLength     = 100
)

// ValidationError lists the fields a request was rejected for before it was sent
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid request"
	}
	return e.Fields[0].Message
}

func (e *ValidationError) Is(target error) bool {
	return target == errors.ErrInvalidInput
}

type validator struct {
	fields []FieldError
}

func (v *validator) check(ok bool, field, message string) bool {
	if !ok {
		v.fields = append(v.fields, FieldError{Field: field, Message: message})
	}
	return ok
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

// Validate applies the constraints the backend enforces on login
func (r LoginRequest) Validate() error {
	v := &validator{}
	v.email(r.Email)
	v.check(r.Password != "", "password", "Password is required")
	return v.err()
}

// Validate applies the constraints the backend enforces on registration
func (r RegisterRequest) Validate() error {
	v := &validator{}
	name := strings.TrimSpace(r.Name)
	if v.check(name != "", "name", "Name is required") {
		n := utf8.RuneCountInString(name)
		v.check(n >= minNameLength && n <= maxNameLength, "name", "Name must be between 2 and 100 characters")
	}
	v.email(r.Email)
	if v.check(r.Password != "", "password", "Password is required") {
		v.check(utf8.RuneCountInString(r.Password) >= minPasswordLength, "password", "Password must be at least 8 characters")
	}
	v.check(strings.TrimSpace(r.Department) != "", "department", "Department is required")
	return v.err()
}

func (v *validator) email(email string) {
	email = strings.TrimSpace(email)
	if !v.check(email != "", "email", "Email is required") {
		return
	}
	at := strings.LastIndex(email, "@")
	v.check(at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n"), "email", "Invalid email format")
}
