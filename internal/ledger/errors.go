package ledger

import (
	"errors"
	"fmt"
)

// Kind classifies why an intent was rejected.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound: the referenced group, expense or member does not exist.
	KindNotFound
	// KindForbidden: the actor lacks standing for the intent.
	KindForbidden
	// KindValidation: the intent is malformed.
	KindValidation
	// KindConflict: the intent does not apply to the current state.
	KindConflict
	// KindInvariantViolation: the ledger state broke one of its own rules.
	// Not retryable; report upward.
	KindInvariantViolation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindInvariantViolation:
		return "invariant violation"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrInvariantViolation = &Error{Kind: KindInvariantViolation}
)

// Error is returned by the gateway for every rejected intent.
type Error struct {
	Kind Kind
	Op   string // intent or operation name, e.g. "ApproveExpense"
	Msg  string
	Err  error // underlying cause, if any
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrForbidden) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the Kind from err, or KindUnknown.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindUnknown
}

func newError(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func notFound(op, format string, args ...any) *Error {
	return newError(KindNotFound, op, format, args...)
}

func forbidden(op, format string, args ...any) *Error {
	return newError(KindForbidden, op, format, args...)
}

func invalid(op, format string, args ...any) *Error {
	return newError(KindValidation, op, format, args...)
}

func conflict(op, format string, args ...any) *Error {
	return newError(KindConflict, op, format, args...)
}

func violation(op, format string, args ...any) *Error {
	return newError(KindInvariantViolation, op, format, args...)
}
