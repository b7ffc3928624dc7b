package api

import (
	"errors"
	"fmt"

	"github.com/notanas/notanas-cli/internal/session"
)

// Session errors, re-exported so callers only need this package.
var (
	ErrNotLoggedIn  = session.ErrNotLoggedIn
	ErrUnauthorized = session.ErrUnauthorized
)

var (
	// ErrOTLExhausted means a one-time link was rejected: expired, used up or unknown.
	ErrOTLExhausted = errors.New("one-time link is expired, exhausted or invalid")

	// ErrInvalidCredentials means POST /auth refused the username or password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrEmptyToken means the server answered successfully without a token.
	ErrEmptyToken = errors.New("server returned an empty token")
)

// ServerError is a non-success status other than 401.
type ServerError struct {
	Op     string
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s failed: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s failed: status %d: %s", e.Op, e.Status, e.Body)
}

// NetworkError is a request that never produced a response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetworkError checks if err is or wraps a *NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// StatusCode returns the HTTP status carried by a *ServerError, or 0.
func StatusCode(err error) int {
	var se *ServerError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
