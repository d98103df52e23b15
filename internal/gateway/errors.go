package gateway

import (
	"errors"
	"net/http"
)

// Error is a failed gateway call. Message is safe to show inline in place of the slice
// content: it is the API's `detail` when present, otherwise a status or transport message.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Status)
}

// Unwrap exposes the transport error, if any.
func (e *Error) Unwrap() error { return e.Err }

// ErrMissingToken is returned when an authenticated call is made without a session token.
var ErrMissingToken = errors.New("gateway: not authorized, no token")

// IsStatus reports whether err is a gateway error carrying the given HTTP status.
func IsStatus(err error, status int) bool {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Status == status
	}
	return false
}

// Message extracts the user-facing message from any error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Error()
	}
	return err.Error()
}
