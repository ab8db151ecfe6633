package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestSecureHandler_SanitizesSensitiveKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		key      string
		value    string
		wantMask bool
	}{
		{name: "cookie key is sanitized", key: "cookie", value: "PHPSESSID=abc123", wantMask: true},
		{name: "Cookie key (uppercase) is sanitized", key: "Cookie", value: "lang=fa", wantMask: true},
		{name: "secret key is sanitized", key: "secret", value: "0871234", wantMask: true},
		{name: "password key is sanitized", key: "password", value: "hunter2", wantMask: true},
		{name: "capres key is sanitized", key: "capres", value: "x7k2p", wantMask: true},
		{name: "captcha_answer key is sanitized", key: "captcha_answer", value: "x7k2p", wantMask: true},
		{name: "session_id key is sanitized", key: "session_id", value: "sess_12345", wantMask: true},
		{name: "keyword in longer key is sanitized", key: "default_secret", value: "changeme", wantMask: true},
		{name: "login key is NOT sanitized", key: "login", value: "10871234", wantMask: false},
		{name: "line key is NOT sanitized", key: "line", value: "0871234", wantMask: false},
		{name: "key key is NOT sanitized", key: "key", value: "0871234", wantMask: false},
		{name: "captcha_calls key is NOT sanitized", key: "captcha_calls", value: "2", wantMask: false},
		{name: "url key is NOT sanitized", key: "url", value: "https://panel.example.net/login.php", wantMask: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewSecureLogger(&buf, true)
			logger.Info("test message", tt.key, tt.value)

			output := buf.String()
			if tt.wantMask {
				if strings.Contains(output, tt.value) {
					t.Errorf("expected value %q to be masked, but found in output: %s", tt.value, output)
				}
				if !strings.Contains(output, MaskValue) {
					t.Errorf("expected mask value %q in output, but not found: %s", MaskValue, output)
				}
			} else if !strings.Contains(output, tt.value) {
				t.Errorf("expected value %q to be present in output, but not found: %s", tt.value, output)
			}
		})
	}
}

func TestSecureHandler_SanitizesSensitivePatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    string
		wantMask bool
	}{
		{name: "php session cookie", value: "PHPSESSID=0a1b2c3d4e", wantMask: true},
		{name: "form body with password", value: "username=10871234&password=0871234", wantMask: true},
		{name: "form body with captcha answer", value: "capres=x7k2p&submit=1", wantMask: true},
		{name: "bearer token", value: "Bearer abc.def.ghi", wantMask: true},
		{name: "basic auth", value: "Basic dXNlcjpwYXNz", wantMask: true},
		{name: "plain reason", value: "max attempts reached", wantMask: false},
		{name: "unrelated assignment", value: "submit=1", wantMask: false},
		{name: "compass is not pass=", value: "compass=north", wantMask: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewSecureLogger(&buf, true)
			logger.Info("test message", "detail", tt.value)

			masked := strings.Contains(buf.String(), MaskValue)
			if masked != tt.wantMask {
				t.Errorf("value %q: masked=%v, want %v (output: %s)", tt.value, masked, tt.wantMask, buf.String())
			}
		})
	}
}

func TestSecureHandler_LogLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		verbose    bool
		logLevel   slog.Level
		shouldShow bool
	}{
		{name: "debug shown in verbose mode", verbose: true, logLevel: slog.LevelDebug, shouldShow: true},
		{name: "debug hidden in non-verbose mode", verbose: false, logLevel: slog.LevelDebug, shouldShow: false},
		{name: "info hidden in non-verbose mode", verbose: false, logLevel: slog.LevelInfo, shouldShow: false},
		{name: "warn shown in non-verbose mode", verbose: false, logLevel: slog.LevelWarn, shouldShow: true},
		{name: "error shown in non-verbose mode", verbose: false, logLevel: slog.LevelError, shouldShow: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewSecureLogger(&buf, tt.verbose)

			testMsg := "test_unique_message_12345"
			logger.Log(t.Context(), tt.logLevel, testMsg)

			hasMessage := strings.Contains(buf.String(), testMsg)
			if hasMessage != tt.shouldShow {
				t.Errorf("shown=%v, want %v (output: %s)", hasMessage, tt.shouldShow, buf.String())
			}
		})
	}
}

func TestSecureHandler_WithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, true)

	logger.With("secret", "0871234").Info("test message")

	output := buf.String()
	if strings.Contains(output, "0871234") {
		t.Errorf("expected secret to be masked in WithAttrs, but found in output: %s", output)
	}
	if !strings.Contains(output, MaskValue) {
		t.Errorf("expected mask value in output, but not found: %s", output)
	}
}

func TestSecureHandler_Groups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, true)

	logger.WithGroup("request").Info("test message",
		"url", "https://panel.example.net/login.php",
		slog.Group("form", "username", "10871234", "password", "pw-9911"),
	)

	output := buf.String()
	if !strings.Contains(output, "https://panel.example.net/login.php") {
		t.Errorf("expected url to be visible, but not found in output: %s", output)
	}
	if !strings.Contains(output, "10871234") {
		t.Errorf("expected username to be visible, but not found in output: %s", output)
	}
	if strings.Contains(output, "pw-9911") {
		t.Errorf("expected password to be masked, but found in output: %s", output)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		New(&buf, true, true).Info("test message", "secret", "0871234")

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("expected JSON output: %v (%s)", err, buf.String())
		}
		if entry["secret"] != MaskValue {
			t.Errorf("expected masked secret, got %v", entry["secret"])
		}
	})

	t.Run("text", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		New(&buf, true, false).Info("test message")
		if !strings.Contains(buf.String(), "msg=\"test message\"") {
			t.Errorf("expected text output, got %s", buf.String())
		}
	})
}

func TestNewSecureHandler_NilHandler(t *testing.T) {
	t.Parallel()

	if h := NewSecureHandler(nil); h.handler == nil {
		t.Error("expected fallback to the default handler")
	}
}
