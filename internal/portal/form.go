package portal

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// HTML element and attribute names used by form discovery.
const (
	htmlElementInput  = "input"
	htmlElementSelect = "select"
	htmlElementOption = "option"

	inputTypeText     = "text"
	inputTypePassword = "password"
	inputTypeHidden   = "hidden"
	inputTypeCheckbox = "checkbox"
	inputTypeRadio    = "radio"

	roleUserSubstring = "user"
	rolePassSubstring = "pass"
)

// nonRoleTypes are input types that can never hold a username or password.
var nonRoleTypes = map[string]bool{
	inputTypeHidden:   true,
	inputTypeCheckbox: true,
	inputTypeRadio:    true,
	"submit":          true,
	"button":          true,
	"image":           true,
	"reset":           true,
	"file":            true,
}

// Form is the POST-able view of a portal page.
type Form struct {
	// Fields maps every named input and select to its default value.
	// A select contributes its pre-selected option, or "" when none is.
	Fields map[string]string

	// UsernameField is the name of the field that takes the login name.
	UsernameField string

	// PasswordField is the name of the field that takes the secret.
	PasswordField string
}

// Values returns the form fields as url.Values without credentials.
func (f *Form) Values() url.Values {
	v := make(url.Values, len(f.Fields))
	for name, value := range f.Fields {
		v.Set(name, value)
	}
	return v
}

// WithCredentials returns the form fields with the role fields filled in.
// Role fields that were not discovered are left out.
func (f *Form) WithCredentials(loginName, secret string) url.Values {
	v := f.Values()
	if f.UsernameField != "" {
		v.Set(f.UsernameField, loginName)
	}
	if f.PasswordField != "" {
		v.Set(f.PasswordField, secret)
	}
	return v
}

// formInput is a named input discovered in document order.
type formInput struct {
	name        string
	id          string
	placeholder string
	inputType   string
}

// ExtractForm parses a login page and returns its fields and role fields.
// It returns ErrLoginFieldsNotFound when either role cannot be identified.
func ExtractForm(r io.Reader) (*Form, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}

	form := collectForm(doc)
	if form.UsernameField == "" || form.PasswordField == "" {
		return form, ErrLoginFieldsNotFound
	}
	return form, nil
}

// extractFormBytes is ExtractForm over a byte slice.
func extractFormBytes(page []byte) (*Form, error) {
	return ExtractForm(bytes.NewReader(page))
}

// collectForm walks the whole document, not just <form> elements, because
// the portal places some inputs outside the form tag and relies on script.
func collectForm(doc *html.Node) *Form {
	form := &Form{Fields: make(map[string]string)}
	inputs := make([]formInput, 0)
	checked := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case htmlElementInput:
				in := formInput{
					name:        getAttr(n, "name"),
					id:          getAttr(n, "id"),
					placeholder: getAttr(n, "placeholder"),
					inputType:   strings.ToLower(strings.TrimSpace(getAttr(n, "type"))),
				}
				if in.inputType == "" {
					in.inputType = inputTypeText
				}
				if in.name != "" {
					addInputValue(form, checked, n, in)
					inputs = append(inputs, in)
				}
			case htmlElementSelect:
				if name := getAttr(n, "name"); name != "" {
					form.Fields[name] = selectedOption(n)
				}
				// Options are not inputs; skip descending into them.
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	form.UsernameField, form.PasswordField = discoverRoles(inputs)
	return form
}

// addInputValue records an input's default value. Radio buttons and
// checkboxes keep the first value seen unless a later one is checked.
func addInputValue(form *Form, checked map[string]bool, n *html.Node, in formInput) {
	value := getAttr(n, "value")
	switch in.inputType {
	case inputTypeRadio, inputTypeCheckbox:
		if hasAttr(n, "checked") {
			form.Fields[in.name] = value
			checked[in.name] = true
			return
		}
		if _, seen := form.Fields[in.name]; !seen && !checked[in.name] {
			form.Fields[in.name] = value
		}
	default:
		form.Fields[in.name] = value
	}
}

// selectedOption returns the value of the pre-selected option of a select,
// or "" when no option carries the selected attribute.
func selectedOption(sel *html.Node) string {
	var value string
	found := false

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.ElementNode && n.Data == htmlElementOption && hasAttr(n, "selected") {
			if hasAttr(n, "value") {
				value = getAttr(n, "value")
			} else {
				value = strings.TrimSpace(textContent(n))
			}
			found = true
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(sel)

	return value
}

// discoverRoles finds the username and password fields.
// Substring matching over name, id, placeholder, and type comes first; the
// first text input and the first password input are the fallbacks.
func discoverRoles(inputs []formInput) (user, pass string) {
	for _, in := range inputs {
		if nonRoleTypes[in.inputType] {
			continue
		}
		haystack := strings.ToLower(in.name + " " + in.id + " " + in.placeholder + " " + in.inputType)

		if pass == "" && strings.Contains(haystack, rolePassSubstring) {
			pass = in.name
			continue
		}
		if user == "" && strings.Contains(haystack, roleUserSubstring) && in.name != pass {
			user = in.name
		}
	}

	if user == "" {
		for _, in := range inputs {
			if in.inputType == inputTypeText && in.name != pass {
				user = in.name
				break
			}
		}
	}
	if pass == "" {
		for _, in := range inputs {
			if in.inputType == inputTypePassword && in.name != user {
				pass = in.name
				break
			}
		}
	}

	return user, pass
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// hasAttr reports whether the node carries the attribute at all.
func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}

// textContent concatenates all text below n.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
