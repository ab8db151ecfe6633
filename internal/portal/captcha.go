package portal

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// captchaHint is matched against img src, id, alt, and class attributes.
const captchaHint = "captcha"

// Challenge is a CAPTCHA challenge found on a portal page.
type Challenge struct {
	// Field is the name of the input that takes the answer.
	Field string

	// ImageSource is the raw src attribute of the challenge image.
	ImageSource string
}

// IsInline reports whether the image is embedded as a data URI.
func (c *Challenge) IsInline() bool {
	return strings.HasPrefix(strings.TrimSpace(c.ImageSource), "data:")
}

// InlineImage decodes a base64 data URI image source.
func (c *Challenge) InlineImage() ([]byte, error) {
	src := strings.TrimSpace(c.ImageSource)
	comma := strings.IndexByte(src, ',')
	if !strings.HasPrefix(src, "data:") || comma < 0 || !strings.Contains(src[:comma], ";base64") {
		return nil, ErrInvalidImageSource
	}
	data, err := base64.StdEncoding.DecodeString(src[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImageSource, err)
	}
	return data, nil
}

// ImageURL resolves the image source against the page URL.
func (c *Challenge) ImageURL(pageURL string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImageSource, err)
	}
	ref, err := url.Parse(strings.TrimSpace(c.ImageSource))
	if err != nil || c.ImageSource == "" {
		return "", ErrInvalidImageSource
	}
	return base.ResolveReference(ref).String(), nil
}

// detectCaptcha finds the answer field named field and a challenge image.
// The image is chosen in order of preference: one whose attributes mention
// "captcha", the first image inside the same form as the field, and finally
// the first image in the document.
func detectCaptcha(doc *html.Node, field string) (*Challenge, bool) {
	var input *html.Node
	for _, n := range htmlquery.Find(doc, "//input") {
		if getAttr(n, "name") == field {
			input = n
			break
		}
	}
	if input == nil {
		return nil, false
	}

	images := htmlquery.Find(doc, "//img[@src]")
	if len(images) == 0 {
		return nil, false
	}

	if img := firstHinted(images); img != nil {
		return &Challenge{Field: field, ImageSource: getAttr(img, "src")}, true
	}
	if form := enclosingForm(input); form != nil {
		if inForm := htmlquery.Find(form, ".//img[@src]"); len(inForm) > 0 {
			return &Challenge{Field: field, ImageSource: getAttr(inForm[0], "src")}, true
		}
	}
	return &Challenge{Field: field, ImageSource: getAttr(images[0], "src")}, true
}

func firstHinted(images []*html.Node) *html.Node {
	for _, img := range images {
		attrs := strings.ToLower(getAttr(img, "src") + " " + getAttr(img, "id") + " " +
			getAttr(img, "alt") + " " + getAttr(img, "class"))
		if strings.Contains(attrs, captchaHint) {
			return img
		}
	}
	return nil
}

func enclosingForm(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "form" {
			return p
		}
	}
	return nil
}
