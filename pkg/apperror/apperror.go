package apperror

import (
	"errors"
	"fmt"
)

// Kind is the stable category of a failure. Callers branch on Kind, never on
// message text.
type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindInvalidInput      Kind = "INVALID_INPUT"
	KindConflict          Kind = "CONFLICT"
	KindIllegalTransition Kind = "ILLEGAL_TRANSITION"
	KindTerminalState     Kind = "TERMINAL_STATE"
	KindEmptyQueue        Kind = "EMPTY_QUEUE"
	KindForbidden         Kind = "FORBIDDEN"
	KindUnavailable       Kind = "UNAVAILABLE"
	KindTimeout           Kind = "TIMEOUT"
	KindInternal          Kind = "INTERNAL"
)

// Error is a typed business or store failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same kind and message, so
// package-level sentinels work with errors.Is even after wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether the caller may resubmit the same request.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindUnavailable, KindTimeout:
		return true
	default:
		return false
	}
}
