package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

const (
	loginPage = `<html><body><form method="POST">
<input type="text" name="username">
<input type="password" name="password">
</form></body></html>`

	captchaPage = `<html><body><form method="POST">
<img src="/captcha.png" alt="captcha">
<input type="hidden" name="capres">
</form></body></html>`

	accountPage = `<html><body><span class="welcome">Sara</span><table>
<tr><td>Plan</td><td>ADSL 16M</td></tr>
<tr><td>Status</td><td>Active</td></tr>
<tr><td>Available Balance</td><td>12 GB</td></tr>
</table></body></html>`

	rejectPage = `<html><body><p>invalid username or password</p></body></html>`

	stubLogin  = "10871234"
	stubLine   = "0871234"
	stubAnswer = "7QK2"
)

// newPortalStub serves a portal that accepts stubLogin with the line as its
// secret and asks for a CAPTCHA after the credentials.
func newPortalStub(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/captcha.png", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "PNG")
	})
	mux.HandleFunc("/login.php", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = io.WriteString(w, loginPage)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.PostForm.Has("capres") {
			pending, err := r.Cookie("pending")
			if err == nil && pending.Value == stubLogin && r.PostForm.Get("capres") == stubAnswer {
				_, _ = io.WriteString(w, accountPage)
				return
			}
			_, _ = io.WriteString(w, rejectPage)
			return
		}
		if r.PostForm.Get("username") == stubLogin && r.PostForm.Get("password") == stubLine {
			http.SetCookie(w, &http.Cookie{Name: "pending", Value: stubLogin, Path: "/"})
			_, _ = io.WriteString(w, captchaPage)
			return
		}
		_, _ = io.WriteString(w, rejectPage)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// newCaptchaStub serves /health and a /predict that always answers stubAnswer.
func newCaptchaStub(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": stubAnswer})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}
