// Package apperr carries failures whose message is shown to the caller
// verbatim. Anything that is not an *Error is an internal failure.
package apperr

import "errors"

type Kind uint8

const (
	KindInternal Kind = iota
	KindAuthorization
	KindPrecondition
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindPrecondition:
		return "precondition"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Unauthorized(msg string) *Error { return New(KindAuthorization, msg) }
func Precondition(msg string) *Error { return New(KindPrecondition, msg) }
func NotFound(msg string) *Error     { return New(KindNotFound, msg) }

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsUserFacing reports whether err should be shown to the caller as-is.
func IsUserFacing(err error) bool {
	return KindOf(err) != KindInternal
}
