package portal

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/adslwatch/internal/model"
)

const loginPage = `<html><body>
<form action="/login" method="POST">
  <input type="hidden" name="token" value="abc123">
  <input type="text" name="txtUser" placeholder="Username">
  <input type="password" name="txtPass">
  <select name="lang">
    <option value="en">English</option>
    <option value="fa" selected>Farsi</option>
  </select>
  <select name="skin"><option value="a">A</option></select>
  <input type="radio" name="mode" value="adsl">
  <input type="radio" name="mode" value="wireless" checked>
  <input type="submit" name="go" value="Login">
</form>
</body></html>`

const accountPage = `<html><body>
<div id="welcome-box">  Ali Rezaei  </div>
<table>
  <tr><td>Subscription Date:</td><td> 1402/01/15 </td></tr>
  <tr><td>Plan</td><td>ADSL 16M</td></tr>
  <tr><td>Status</td><td>Active</td></tr>
  <tr><td>Available Balance</td><td>12 GB</td></tr>
  <tr><td>Expiry Date</td><td>1403/01/15</td></tr>
  <tr><td>Plan</td><td>ignored duplicate</td></tr>
  <tr><td>Unrelated</td><td>x</td><td>three cells</td></tr>
</table>
</body></html>`

const captchaPage = `<html><body>
<img src="/static/logo.png">
<form action="/login" method="POST">
  <input type="hidden" name="token" value="xyz">
  <input type="text" name="txtUser">
  <input type="password" name="txtPass">
  <img src="/captcha.php?id=7" id="captchaImage">
  <input type="text" name="capres">
</form>
</body></html>`

func TestExtractForm(t *testing.T) {
	t.Parallel()

	t.Run("discovers roles and defaults", func(t *testing.T) {
		t.Parallel()

		form, err := ExtractForm(strings.NewReader(loginPage))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if form.UsernameField != "txtUser" {
			t.Errorf("expected username field txtUser, got %q", form.UsernameField)
		}
		if form.PasswordField != "txtPass" {
			t.Errorf("expected password field txtPass, got %q", form.PasswordField)
		}

		want := map[string]string{
			"token":   "abc123",
			"txtUser": "",
			"txtPass": "",
			"lang":    "fa",
			"skin":    "",
			"mode":    "wireless",
			"go":      "Login",
		}
		if diff := cmp.Diff(want, form.Fields); diff != "" {
			t.Errorf("fields mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("fills credentials", func(t *testing.T) {
		t.Parallel()

		form, err := ExtractForm(strings.NewReader(loginPage))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		values := form.WithCredentials("21234567", "s3cret")
		if values.Get("txtUser") != "21234567" || values.Get("txtPass") != "s3cret" {
			t.Errorf("credentials not filled: %v", values)
		}
		if values.Get("token") != "abc123" {
			t.Errorf("hidden field lost: %v", values)
		}
	})

	t.Run("falls back to input types", func(t *testing.T) {
		t.Parallel()

		page := `<form><input name="a"><input type="password" name="b"></form>`
		form, err := ExtractForm(strings.NewReader(page))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if form.UsernameField != "a" || form.PasswordField != "b" {
			t.Errorf("expected a/b, got %q/%q", form.UsernameField, form.PasswordField)
		}
	})

	t.Run("missing roles", func(t *testing.T) {
		t.Parallel()

		page := `<form><input type="hidden" name="token" value="1"></form>`
		form, err := ExtractForm(strings.NewReader(page))
		if !errors.Is(err, ErrLoginFieldsNotFound) {
			t.Fatalf("expected ErrLoginFieldsNotFound, got %v", err)
		}
		if form == nil || form.Fields["token"] != "1" {
			t.Errorf("expected partial form to be returned, got %+v", form)
		}
	})
}

func TestSnapshotParser(t *testing.T) {
	t.Parallel()

	t.Run("parses account table", func(t *testing.T) {
		t.Parallel()

		p, err := NewSnapshotParser(Layout{})
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}
		snap, ok := p.ParseBytes([]byte(accountPage))
		if !ok {
			t.Fatal("expected snapshot to be found")
		}
		want := model.AccountSnapshot{
			DisplayedName:        "Ali Rezaei",
			SubscriptionDate:     "1402/01/15",
			PlanText:             "ADSL 16M",
			StatusText:           "Active",
			AvailableBalanceText: "12 GB",
			ExpiryDateText:       "1403/01/15",
		}
		if diff := cmp.Diff(want, snap); diff != "" {
			t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("matches persian labels across letter variants", func(t *testing.T) {
		t.Parallel()

		// Status label written with Arabic yeh instead of Farsi yeh.
		page := "<table><tr><td>وضعيت</td><td>فعال</td></tr></table>"
		p, err := NewSnapshotParser(Layout{})
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}
		snap, ok := p.ParseBytes([]byte(page))
		if !ok {
			t.Fatal("expected snapshot to be found")
		}
		if snap.StatusText != "فعال" {
			t.Errorf("unexpected status %q", snap.StatusText)
		}
	})

	t.Run("no account rows", func(t *testing.T) {
		t.Parallel()

		p, err := NewSnapshotParser(Layout{})
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}
		if _, ok := p.ParseBytes([]byte(loginPage)); ok {
			t.Error("expected login page to yield no snapshot")
		}
	})

	t.Run("custom labels", func(t *testing.T) {
		t.Parallel()

		p, err := NewSnapshotParser(Layout{Labels: Labels{Plan: []string{"Package"}}})
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}
		snap, ok := p.ParseBytes([]byte(`<table><tr><th>Package</th><td>Gold</td></tr></table>`))
		if !ok || snap.PlanText != "Gold" {
			t.Errorf("expected plan Gold, got %+v (ok=%v)", snap, ok)
		}
	})

	t.Run("header label cells", func(t *testing.T) {
		t.Parallel()

		p, err := NewSnapshotParser(Layout{})
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}
		page := `<table>
<tr><th>Status</th><td>Active</td></tr>
<tr><th>Plan</th><td>ADSL 8M</td></tr>
</table>`
		snap, ok := p.ParseBytes([]byte(page))
		if !ok {
			t.Fatal("expected snapshot to be found")
		}
		if snap.StatusText != "Active" || snap.PlanText != "ADSL 8M" {
			t.Errorf("unexpected snapshot %+v", snap)
		}
	})

	t.Run("invalid xpath", func(t *testing.T) {
		t.Parallel()

		_, err := NewSnapshotParser(Layout{TableXPath: "//table[@"})
		if !errors.Is(err, ErrInvalidXPath) {
			t.Errorf("expected ErrInvalidXPath, got %v", err)
		}
	})
}

func TestHTMLAdapterCaptcha(t *testing.T) {
	t.Parallel()

	adapter, err := NewHTMLAdapter(Layout{})
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}

	t.Run("detects hinted image", func(t *testing.T) {
		t.Parallel()

		ch, ok := adapter.DetectCaptcha([]byte(captchaPage))
		if !ok {
			t.Fatal("expected captcha to be detected")
		}
		if ch.Field != DefaultCaptchaField {
			t.Errorf("expected field %q, got %q", DefaultCaptchaField, ch.Field)
		}
		got, err := ch.ImageURL("http://portal.example/login")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "http://portal.example/captcha.php?id=7" {
			t.Errorf("unexpected image url %q", got)
		}
	})

	t.Run("falls back to image in form", func(t *testing.T) {
		t.Parallel()

		page := `<img src="/logo.png"><form><img src="/c.png"><input name="capres"></form>`
		ch, ok := adapter.DetectCaptcha([]byte(page))
		if !ok || ch.ImageSource != "/c.png" {
			t.Errorf("expected /c.png, got %+v (ok=%v)", ch, ok)
		}
	})

	t.Run("no answer field", func(t *testing.T) {
		t.Parallel()

		if _, ok := adapter.DetectCaptcha([]byte(loginPage)); ok {
			t.Error("expected no captcha on plain login page")
		}
	})

	t.Run("inline image", func(t *testing.T) {
		t.Parallel()

		ch := &Challenge{Field: "capres", ImageSource: "data:image/png;base64,aGVsbG8="}
		if !ch.IsInline() {
			t.Fatal("expected inline image")
		}
		data, err := ch.InlineImage()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != "hello" {
			t.Errorf("expected hello, got %q", data)
		}

		bad := &Challenge{ImageSource: "data:image/png,raw"}
		if _, err := bad.InlineImage(); !errors.Is(err, ErrInvalidImageSource) {
			t.Errorf("expected ErrInvalidImageSource, got %v", err)
		}
	})

	t.Run("submission carries fields", func(t *testing.T) {
		t.Parallel()

		cred := model.Credential{LoginName: "21234567", Secret: "pw"}
		values := adapter.CaptchaSubmission([]byte(captchaPage), cred, "x7k2")
		checks := map[string]string{
			"token":             "xyz",
			"txtUser":           "21234567",
			"txtPass":           "pw",
			DefaultCaptchaField: "x7k2",
			DefaultSubmitField:  DefaultSubmitValue,
		}
		for key, want := range checks {
			if got := values.Get(key); got != want {
				t.Errorf("%s: expected %q, got %q", key, want, got)
			}
		}
	})
}
