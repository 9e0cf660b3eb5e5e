package httpapi

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned when a client that requires a bearer token
// is used before a login flow has stored one.
var ErrNotAuthenticated = errors.New("not authenticated")

// StatusError is a non-2xx response from the remote service, surfaced after
// any retry budget has been spent.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// IsStatus reports whether err wraps a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
