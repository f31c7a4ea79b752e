// Package service holds the admin authentication and product catalog logic.
package service

import (
	"errors"
	"fmt"
)

// Kind classifies service failures. The HTTP layer maps kinds to status
// codes.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindUnauthorized       Kind = "unauthorized"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindNotFound           Kind = "not_found"
	KindStore              Kind = "store_error"
	KindInternal           Kind = "internal"
)

// Error is returned by every service operation. Msg is safe to show to
// clients; Err carries the underlying cause, if any.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err. Errors not produced by this package are
// internal; a nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func validationError(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func notFound(msg string) error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

func storeError(msg string, err error) error {
	return &Error{Kind: KindStore, Msg: msg, Err: err}
}

func internalError(msg string, err error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

var (
	errInvalidCredentials = &Error{Kind: KindInvalidCredentials, Msg: "invalid credentials"}
	errNotAuthenticated   = &Error{Kind: KindUnauthorized, Msg: "not authenticated"}
)
