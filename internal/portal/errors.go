package portal

import "errors"

var (
	// ErrLoginFieldsNotFound is returned when the username or password field
	// of the login form cannot be identified. Retrying does not help.
	ErrLoginFieldsNotFound = errors.New("login fields not found")

	// ErrMalformedPage is returned when the document cannot be parsed at all.
	ErrMalformedPage = errors.New("malformed portal page")

	// ErrInvalidXPath is returned by NewHTMLAdapter for an unusable layout
	// expression.
	ErrInvalidXPath = errors.New("invalid xpath expression")

	// ErrInvalidImageSource is returned when a CAPTCHA image source is
	// neither a resolvable URL nor a base64 data URI.
	ErrInvalidImageSource = errors.New("invalid captcha image source")
)
