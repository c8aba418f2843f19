// Package apperr is the error taxonomy shared by services and the HTTP boundary.
package apperr

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

func (k Kind) HTTPStatus() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a client-safe Message; the wrapped cause stays server side.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Cause keeps pkg/errors.Cause walking through to the root error.
func (e *Error) Cause() error { return e.cause }

// Format renders the wrapped stack with %+v.
func (e *Error) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') && e.cause != nil {
		fmt.Fprintf(s, "%s: %+v", e.Message, e.cause)
		return
	}
	fmt.Fprint(s, e.Error())
}

func newErr(kind Kind, cause error, format string, args ...any) *Error {
	if cause == nil {
		cause = errors.New(fmt.Sprintf(format, args...))
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

func BadRequest(format string, args ...any) *Error {
	return newErr(KindBadRequest, nil, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return newErr(KindUnauthorized, nil, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newErr(KindForbidden, nil, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newErr(KindNotFound, nil, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newErr(KindConflict, nil, format, args...)
}

// Internal hides cause from clients behind message.
func Internal(cause error, format string, args ...any) *Error {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return newErr(KindInternal, cause, format, args...)
}

// KindOf reports the taxonomy kind of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err belongs to kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// PublicMessage is what a client may see for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}
