package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies backend failures.
type Kind int

const (
	// KindConnection covers refused, reset, and otherwise unreachable hosts.
	KindConnection Kind = iota
	// KindTimeout covers deadline and timeout failures.
	KindTimeout
	// KindMalformed covers responses that could not be parsed.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindMalformed:
		return "malformed response"
	default:
		return "unknown"
	}
}

// Error is a backend failure with its classification attached.
type Error struct {
	Kind   Kind
	Method string
	URL    string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s error: %v", e.Method, e.URL, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s %s: %s error", e.Method, e.URL, e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// AsError extracts *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// IsConnection reports whether err is a connection-kind backend failure.
func IsConnection(err error) bool {
	be, ok := AsError(err)
	return ok && be.Kind == KindConnection
}

// IsTimeout reports whether err is a timeout-kind backend failure.
func IsTimeout(err error) bool {
	be, ok := AsError(err)
	return ok && be.Kind == KindTimeout
}

// IsMalformed reports whether err is a malformed-response backend failure.
func IsMalformed(err error) bool {
	be, ok := AsError(err)
	return ok && be.Kind == KindMalformed
}

// classify wraps a transport error with its kind. Timeouts are recognized
// from net.Error and context deadlines; everything else at the transport
// level counts as a connection failure.
func classify(method, url string, err error) *Error {
	kind := KindConnection

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		kind = KindTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}

	return &Error{Kind: kind, Method: method, URL: url, Cause: err}
}

// malformed wraps a parse failure.
func malformed(method, url string, err error) *Error {
	return &Error{Kind: KindMalformed, Method: method, URL: url, Cause: err}
}
