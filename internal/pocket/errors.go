package pocket

import (
	"errors"
	"fmt"
)

// Kind classifies a failed Pocket API call. The gateway is the only place
// that maps raw failures into this taxonomy; callers propagate the structured
// error unchanged.
type Kind int

const (
	// KindTransport means the request never produced a response
	// (network failure, DNS, connection reset).
	KindTransport Kind = iota + 1

	// KindRemote means Pocket responded with a non-success status other
	// than unauthorized.
	KindRemote

	// KindAuth means Pocket rejected the attached access token. The
	// gateway evicts the stored token as a side effect when it detects
	// this, forcing re-authentication on next use.
	KindAuth
)

// XErrorUnknown is the placeholder remote error context used when no
// X-Error header was available, matching what crosses the message boundary.
const XErrorUnknown = "<unknown>"

// XErrorTransport marks errors raised before any response arrived.
const XErrorTransport = "<transport>"

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindRemote:
		return "remote"
	case KindAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// RequestError is the structured failure for every Pocket API call. XError
// carries the out-of-band X-Error response header when one was present.
type RequestError struct {
	Kind    Kind
	Message string
	Status  int
	XError  string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s [%s]", e.Message, e.XError)
}

// Name returns the error name used across the message boundary. Plain errors
// do not survive serialization, so handlers rebuild them from this name plus
// Message and XError.
func (e *RequestError) Name() string {
	if e.Kind == KindAuth {
		return "PocketAuthenticationError"
	}
	return "PocketRequestError"
}

func transportError(err error) *RequestError {
	return &RequestError{
		Kind:    KindTransport,
		Message: fmt.Sprintf("pocket api unreachable: %v", err),
		XError:  XErrorTransport,
	}
}

// IsAuthError reports whether err is a Pocket authorization failure.
func IsAuthError(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Kind == KindAuth
}

// AsRequestError extracts the structured request error from err, if any.
func AsRequestError(err error) (*RequestError, bool) {
	var re *RequestError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
