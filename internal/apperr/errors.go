// Package apperr defines the error taxonomy shared by stores, services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindInvalidOperation
	KindNotFound
	KindConflict
	KindTransientStorage
	KindFatalConfiguration
	KindUnauthorized
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindInvalidOperation:
		return "invalid_operation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTransientStorage:
		return "transient_storage"
	case KindFatalConfiguration:
		return "fatal_configuration"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Error carries a Kind so callers can tell "already following" from "user does not exist".
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Invalid(format string, args ...any) error {
	return New(KindInvalidOperation, format, args...)
}

func NotFound(format string, args ...any) error {
	return New(KindNotFound, format, args...)
}

func Conflict(format string, args ...any) error {
	return New(KindConflict, format, args...)
}

func Unauthorized(format string, args ...any) error {
	return New(KindUnauthorized, format, args...)
}

// Forbidden: the actor is authenticated but does not own the resource.
func Forbidden(format string, args ...any) error {
	return New(KindForbidden, format, args...)
}

// Transient marks a storage failure that is safe to retry.
func Transient(err error, msg string) error {
	if err == nil {
		return nil
	}
	return Wrap(KindTransientStorage, err, msg)
}

func Fatal(err error, msg string) error {
	return Wrap(KindFatalConfiguration, err, msg)
}

// KindOf returns KindInternal for errors outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
