package club

import (
	"errors"
	"fmt"
)

// Kind classifies domain errors so transports can map them to status codes
type Kind string

// error kinds
const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindUnavailable Kind = "unavailable"
	KindUpstream    Kind = "upstream" // a dependency answered with a permanent failure
)

// Error is a domain error with a kind and a client-facing message
type Error struct {
	Kind Kind
	Msg  string
	Err  error // underlying cause, not shown to clients
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// NewError makes an Error of the given kind
func NewError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of the first domain error in the chain, empty for other errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message returns the client-facing message of a domain error, or the error text otherwise
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return err.Error()
}

func validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func notFound(what string, err error) error {
	return &Error{Kind: KindNotFound, Msg: what + " not found", Err: err}
}
