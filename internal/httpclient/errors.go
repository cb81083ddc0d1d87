package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// TransportErrorKind tags network failures so higher layers can report
// them precisely. Nothing is retried internally.
type TransportErrorKind string

const (
	TransportDNS               TransportErrorKind = "dns"
	TransportConnectionRefused TransportErrorKind = "connection_refused"
	TransportTimeout           TransportErrorKind = "timeout"
	TransportOther             TransportErrorKind = "other"
)

// TransportError wraps a network-level failure for one request.
type TransportError struct {
	Kind TransportErrorKind
	URL  string
	Err  error
}

func (e *TransportError) Error() string {
	switch e.Kind {
	case TransportDNS:
		return fmt.Sprintf("could not resolve host for %s: %v", e.URL, e.Err)
	case TransportConnectionRefused:
		return fmt.Sprintf("connection refused for %s: %v", e.URL, e.Err)
	case TransportTimeout:
		return fmt.Sprintf("request timed out for %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// classifyTransportError maps an http.Client error onto a TransportError.
func classifyTransportError(url string, err error) *TransportError {
	kind := TransportOther

	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.As(err, &dnsErr):
		kind = TransportDNS
	case errors.Is(err, syscall.ECONNREFUSED):
		kind = TransportConnectionRefused
	case errors.Is(err, context.DeadlineExceeded):
		kind = TransportTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = TransportTimeout
	}

	return &TransportError{Kind: kind, URL: url, Err: err}
}

// StatusError reports an HTTP response with status >= 400. The transport
// itself never returns it; chain steps and the exit-on-http-error policy
// construct it from a completed response.
type StatusError struct {
	Status     int
	StatusText string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.Status, e.StatusText)
}
