// Package errs defines the closed set of failure kinds that cross service
// boundaries, and the HTTP status each one maps to.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure. The set is closed; callers switch over it.
type Kind int

const (
	Internal Kind = iota
	DuplicateIdentity
	InvalidCredentials
	Unauthenticated
	Forbidden
	NotFound
	UploadRejected
	Validation
	DependencyUnavailable
)

var kindNames = map[Kind]string{
	Internal:              "internal",
	DuplicateIdentity:     "duplicate identity",
	InvalidCredentials:    "invalid credentials",
	Unauthenticated:       "unauthenticated",
	Forbidden:             "forbidden",
	NotFound:              "not found",
	UploadRejected:        "upload rejected",
	Validation:            "validation error",
	DependencyUnavailable: "dependency unavailable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// StatusCode returns the HTTP status used when an error of this kind reaches
// a client.
func (k Kind) StatusCode() int {
	switch k {
	case DuplicateIdentity:
		return http.StatusConflict
	case InvalidCredentials, Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case UploadRejected, Validation:
		return http.StatusBadRequest
	case DependencyUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is the error type returned by services.
type Error struct {
	Kind Kind
	// Message is safe to show to clients.
	Message string
	// Field names the offending input for validation errors.
	Field string
	// Cause is kept for logs and never written to clients.
	Cause error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so errors.Is(err, errs.E(errs.Forbidden))
// works without comparing messages.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Cause == nil
}

// E returns a bare error of the given kind, useful as an errors.Is target.
func E(kind Kind) *Error {
	return &Error{Kind: kind}
}

// New constructs an error with a client-safe message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a cause to a new error of the given kind.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Invalid builds a validation error for a single field.
func Invalid(field, message string) *Error {
	return &Error{Kind: Validation, Message: message, Field: field}
}

// KindOf classifies any error. Errors that are not *Error are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
