package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and let callers use
// errors.Is() to tell which setting is wrong.
var (
	// ErrNoPortalURL is returned when an operation that talks to the portal
	// runs without a login URL.
	ErrNoPortalURL = errors.New("no portal URL specified: use --portal-url or set portal.loginURL in the config file")

	// ErrInvalidPortalURL is returned when the portal URL is not an absolute http(s) URL.
	ErrInvalidPortalURL = errors.New("invalid portal URL: must be an absolute http or https URL")

	// ErrInvalidCaptchaURL is returned when the CAPTCHA service URL is not an absolute http(s) URL.
	ErrInvalidCaptchaURL = errors.New("invalid captcha URL: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned when a request or CAPTCHA timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidSessionTTL is returned when the session TTL is not positive.
	ErrInvalidSessionTTL = errors.New("invalid session TTL: must be positive")

	// ErrInvalidWorkers is returned when the worker or resolver concurrency is not positive.
	ErrInvalidWorkers = errors.New("invalid concurrency: workers must be positive")

	// ErrInvalidMaxAttempts is returned when the per-account attempt budget is not positive.
	ErrInvalidMaxAttempts = errors.New("invalid max attempts: must be positive")

	// ErrInvalidBackoff is returned when the backoff delay is negative or the
	// factor is below 1.
	ErrInvalidBackoff = errors.New("invalid backoff: delay must be non-negative and factor at least 1")

	// ErrInvalidRateLimit is returned when the per-session rate limit is negative.
	// Use 0 for no limit.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrInvalidItemTimeout is returned when the per-line deadline is negative.
	// Use 0 for no deadline.
	ErrInvalidItemTimeout = errors.New("invalid item timeout: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrConflictingEgress is returned when both an external proxy and the
	// embedded Tor daemon are requested.
	ErrConflictingEgress = errors.New("conflicting egress: --proxy and --tor cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)
