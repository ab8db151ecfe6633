package session

import "errors"

var (
	// ErrClosed is returned by Handle requests after the handle was swept or
	// the pool was closed.
	ErrClosed = errors.New("session handle closed")

	// ErrBodyTooLarge is returned when a response exceeds the body cap.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrUnexpectedStatus is returned for HTTP responses with status >= 400
	// that survived the retry transport.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)
