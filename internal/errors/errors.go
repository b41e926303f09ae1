package errors

import (
	stderrors "errors"
	"fmt"
)

var ErrUnauthorized = stderrors.New("user is not authorized")
var ErrForbidden = stderrors.New("operation is forbidden for user")

// Kind distinguishes failures so callers never have to match on message text.
// A Kind is itself an error, which lets errors.Is(err, KindNotFound) work on
// anything produced by New or Wrap.
type Kind string

const (
	KindParse                      Kind = "parse_failure"
	KindValidation                 Kind = "validation"
	KindInsufficientGuestInfo      Kind = "insufficient_guest_info"
	KindAuthRequired               Kind = "auth_required"
	KindBelowMinimumSpend          Kind = "below_minimum_spend"
	KindNotFound                   Kind = "not_found"
	KindLookupFailed               Kind = "lookup_failed"
	KindOverpayment                Kind = "overpayment"
	KindInvalidState               Kind = "invalid_state"
	KindPaymentAuthorizationFailed Kind = "payment_authorization_failed"
	KindInternal                   Kind = "internal"
)

func (k Kind) Error() string { return string(k) }

// Error carries a Kind, a user-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return stderrors.Is(err, kind)
}
