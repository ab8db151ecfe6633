package portal

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/antchfx/htmlquery"

	"github.com/nao1215/adslwatch/internal/model"
)

// Adapter captures everything the login flow needs to know about the
// portal's markup. Implementations must be safe for concurrent use.
type Adapter interface {
	// ExtractLoginForm returns the login form of page.
	ExtractLoginForm(page []byte) (*Form, error)

	// ParseSnapshot returns the account snapshot of an authenticated page.
	ParseSnapshot(page []byte) (model.AccountSnapshot, bool)

	// DetectCaptcha reports whether page asks for a CAPTCHA answer.
	DetectCaptcha(page []byte) (*Challenge, bool)

	// CaptchaSubmission builds the form values that answer the challenge
	// on page for the given credential.
	CaptchaSubmission(page []byte, cred model.Credential, answer string) url.Values
}

// HTMLAdapter is the Adapter for the subscriber portal's HTML skin.
type HTMLAdapter struct {
	layout Layout
	parser *SnapshotParser
}

var _ Adapter = (*HTMLAdapter)(nil)

// NewHTMLAdapter creates an adapter for layout.
// Empty layout fields fall back to DefaultLayout.
func NewHTMLAdapter(layout Layout) (*HTMLAdapter, error) {
	layout = layout.Merge(DefaultLayout())
	parser, err := NewSnapshotParser(layout)
	if err != nil {
		return nil, err
	}
	return &HTMLAdapter{layout: layout, parser: parser}, nil
}

// Layout returns the effective layout.
func (a *HTMLAdapter) Layout() Layout {
	return a.layout
}

// ExtractLoginForm implements Adapter.
func (a *HTMLAdapter) ExtractLoginForm(page []byte) (*Form, error) {
	return extractFormBytes(page)
}

// ParseSnapshot implements Adapter.
func (a *HTMLAdapter) ParseSnapshot(page []byte) (model.AccountSnapshot, bool) {
	return a.parser.ParseBytes(page)
}

// DetectCaptcha implements Adapter.
func (a *HTMLAdapter) DetectCaptcha(page []byte) (*Challenge, bool) {
	doc, err := htmlquery.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, false
	}
	return detectCaptcha(doc, a.layout.CaptchaField)
}

// CaptchaSubmission implements Adapter.
// Every field on the challenge page is carried over. The credential is
// filled in again when the page still shows the login fields.
func (a *HTMLAdapter) CaptchaSubmission(page []byte, cred model.Credential, answer string) url.Values {
	var values url.Values
	form, err := extractFormBytes(page)
	switch {
	case form == nil:
		values = make(url.Values)
	case err == nil:
		values = form.WithCredentials(cred.LoginName, cred.Secret)
	default:
		values = form.Values()
	}
	values.Set(a.layout.CaptchaField, answer)
	values.Set(a.layout.SubmitField, a.layout.SubmitValue)
	return values
}

func wrapXPath(expr string, err error) error {
	return fmt.Errorf("%w %q: %v", ErrInvalidXPath, expr, err)
}
