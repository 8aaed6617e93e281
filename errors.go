package relay

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a relay failure. Every failure the pipeline reports
// has exactly one Kind, which fixes its HTTP status and the public
// error message.
type Kind uint8

const (
	KindInternal Kind = iota
	KindBadRequest
	KindMalformed
	KindNotSponsored
	KindRateLimited
	KindConfiguration
	KindSponsorship
	KindBroadcastTransport
	KindBroadcastRejected
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "InternalError"
	case KindBadRequest:
		return "BadRequest"
	case KindMalformed:
		return "Malformed"
	case KindNotSponsored:
		return "NotSponsored"
	case KindRateLimited:
		return "RateLimited"
	case KindConfiguration:
		return "ConfigurationError"
	case KindSponsorship:
		return "SponsorshipError"
	case KindBroadcastTransport:
		return "BroadcastTransportError"
	case KindBroadcastRejected:
		return "BroadcastRejected"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindBadRequest, KindMalformed, KindNotSponsored, KindBroadcastRejected:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the public error message for the kind.
func (k Kind) Message() string {
	switch k {
	case KindBadRequest:
		return "Missing transaction field"
	case KindMalformed:
		return "Invalid transaction"
	case KindNotSponsored:
		return "Transaction must be sponsored"
	case KindRateLimited:
		return "Rate limit exceeded"
	case KindConfiguration:
		return "Service not configured"
	case KindSponsorship:
		return "Failed to sponsor transaction"
	case KindBroadcastTransport:
		return "Failed to broadcast transaction"
	case KindBroadcastRejected:
		return "Transaction rejected by network"
	default:
		return "Internal server error"
	}
}

// Error is a classified relay failure.
type Error struct {
	Kind Kind
	// Public overrides Kind.Message when set.
	Public string
	// Detail is reported to the caller as "details". May be empty.
	Detail string
	// Err is the underlying cause, if any. Never reported verbatim
	// unless it is also the Detail.
	Err error
}

// Errorf creates an Error of the given kind with a formatted detail.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind whose detail is err's message.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Detail: err.Error(), Err: err}
}

// Message returns the public error message.
func (e *Error) Message() string {
	if e.Public != "" {
		return e.Public
	}
	return e.Kind.Message()
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message())
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message(), e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// AsError checks whether err is (or wraps) an *Error and returns it.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or KindInternal if err is not a
// classified relay failure.
func KindOf(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return KindInternal
}
