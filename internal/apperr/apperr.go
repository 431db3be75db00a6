// Package apperr defines the error kinds surfaced at the HTTP boundary.
package apperr

import (
	"net/http"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindForbidden
	KindNotFound
	KindConflict
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to its response code. Conflicts are reported as 400.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Kinded is implemented by domain errors that know their own kind.
type Kinded interface {
	error
	ErrorKind() Kind
}

// Error carries a kind, a caller-safe message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) ErrorKind() Kind { return e.Kind }

func Validation(msg string) error { return &Error{Kind: KindValidation, Message: msg} }
func Auth(msg string) error       { return &Error{Kind: KindAuth, Message: msg} }
func Forbidden(msg string) error  { return &Error{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) error   { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) error   { return &Error{Kind: KindConflict, Message: msg} }

// Upstream wraps a payment processor or other remote failure. Its message is
// shown to the caller.
func Upstream(msg string, err error) error {
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

// KindOf returns the kind of the first Kinded error in the chain, or
// KindInternal.
func KindOf(err error) Kind {
	var k Kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return KindInternal
}

// PublicMessage returns what may be shown to a caller. Internal errors get a
// generic message.
func PublicMessage(err error) string {
	var k Kinded
	if !errors.As(err, &k) || k.ErrorKind() == KindInternal {
		return "internal server error"
	}
	var ae *Error
	if errors.As(err, &ae) {
		if ae.Kind == KindUpstream && ae.Err != nil {
			return ae.Message + ": " + ae.Err.Error()
		}
		return ae.Message
	}
	return k.Error()
}
