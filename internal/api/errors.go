package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned (wrapped in a TransportError) when the backend
// answers 404 for a single product.
var ErrNotFound = errors.New("api: not found")

// ErrCheckoutUnavailable is returned by a cart client that has no backend.
var ErrCheckoutUnavailable = errors.New("api: checkout backend not configured")

// ErrResponseTooLarge is returned (wrapped in a TransportError) when a
// response body exceeds the client's read limit.
var ErrResponseTooLarge = errors.New("api: response body too large")

// TransportError reports a network failure or a non-2xx response.
type TransportError struct {
	Op         string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.StatusCode != 0 {
		if len(e.Body) > 0 {
			return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, truncate(e.Body, 200))
		}
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError reports a response payload that could not be decoded.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: malformed payload: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func statusError(op string, status int, body []byte) error {
	te := &TransportError{Op: op, StatusCode: status, Body: body}
	if status == http.StatusNotFound {
		te.Err = ErrNotFound
	}
	return te
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
