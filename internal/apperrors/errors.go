// Package apperrors defines the error kinds the storefront surfaces to clients
// and their HTTP status codes.
package apperrors

import (
	"errors"
	"net/http"
)

// Kinds. Match with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("not authenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
)

// Error is a client-facing failure. Field names the offending input for
// validation errors; Fields holds one message per input when several failed.
type Error struct {
	Kind    error
	Field   string
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

// Is lets errors.Is(err, ErrNotFound) match an *Error of that kind.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Validation reports a bad input field.
func Validation(field, message string) *Error {
	return &Error{Kind: ErrValidation, Field: field, Message: message}
}

// ValidationFields reports several bad input fields at once.
func ValidationFields(fields map[string]string) *Error {
	return &Error{Kind: ErrValidation, Message: "Validation failed", Fields: fields}
}

// Unauthenticated reports a missing or invalid session.
func Unauthenticated(message string) *Error {
	return &Error{Kind: ErrUnauthenticated, Message: message}
}

// Forbidden reports an authenticated caller lacking privileges.
func Forbidden(message string) *Error {
	return &Error{Kind: ErrForbidden, Message: message}
}

// NotFound reports a missing record.
func NotFound(message string) *Error {
	return &Error{Kind: ErrNotFound, Message: message}
}

// Conflict reports a state clash such as a duplicate email.
func Conflict(message string) *Error {
	return &Error{Kind: ErrConflict, Message: message}
}

// Status maps err to an HTTP status code. Unknown errors are 500.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// As extracts the *Error from err, if any.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
