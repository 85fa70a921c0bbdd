package apierrors

import (
	"errors"
	"fmt"
)

// Kind tags an error with one of the categories the HTTP edge knows how to
// translate. The core never maps kinds to status codes itself.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindNotFound
	KindPermissionDenied
	KindConflict
)

type Error struct {
	kind    Kind
	message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Kind() Kind {
	return e.kind
}

// Message is the client-visible text. Internal errors stay opaque.
func (e *Error) Message() string {
	if e.kind == KindInternal {
		return "Internal Server Error"
	}
	return e.message
}

func Internal(cause error) *Error {
	return &Error{kind: KindInternal, message: "internal server error", cause: cause}
}

func BadRequest(msg string) *Error {
	return &Error{kind: KindBadRequest, message: msg}
}

func BadRequestf(format string, args ...interface{}) *Error {
	return &Error{kind: KindBadRequest, message: fmt.Sprintf(format, args...)}
}

func NotFound(what string) *Error {
	return &Error{kind: KindNotFound, message: what}
}

func PermissionDenied() *Error {
	return &Error{kind: KindPermissionDenied, message: "Unauthorized"}
}

func Conflict(msg string) *Error {
	return &Error{kind: KindConflict, message: msg}
}

// KindOf extracts the kind of err, treating anything that is not an
// *apierrors.Error as internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Wrap attaches a kind to an arbitrary error, keeping the original as cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{kind: kind, message: msg, cause: cause}
}
