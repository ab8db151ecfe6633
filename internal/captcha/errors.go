package captcha

import "errors"

var (
	// ErrInvalidBaseURL is returned by NewClient for an unusable service URL.
	ErrInvalidBaseURL = errors.New("invalid captcha service URL")

	// ErrServiceStatus is returned when the service answers with a non-2xx
	// status.
	ErrServiceStatus = errors.New("captcha service returned an error status")

	// ErrEmptyImage is returned by Solve when there is nothing to send.
	ErrEmptyImage = errors.New("empty captcha image")
)
