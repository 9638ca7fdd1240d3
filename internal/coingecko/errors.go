package coingecko

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is matched by a StatusError carrying HTTP 404.
var ErrNotFound = errors.New("coin not found")

// TransportError is a request that never produced a usable response:
// connection failures, timeouts and undecodable bodies.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("coingecko op=%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is a response with a non-success HTTP status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("coingecko op=%s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// IsStatus reports whether err is, or wraps, a StatusError.
func IsStatus(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}
