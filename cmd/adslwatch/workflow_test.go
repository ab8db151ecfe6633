package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/nao1215/adslwatch/internal/model"
	"github.com/nao1215/adslwatch/internal/report"
)

// TestWorkflow registers a line against stub services, then refreshes,
// shows and lists the history of the new account.
func TestWorkflow(t *testing.T) {
	t.Parallel()

	portalSrv := newPortalStub(t)
	captchaSrv := newCaptchaStub(t)
	dbDir := t.TempDir()
	cfgPath := writeConfigFile(t, "portal:\n  loginURL: \""+portalSrv.URL+"/login.php\"\n")

	common := []string{
		"--config", cfgPath,
		"--db-dir", dbDir,
		"--captcha-url", captchaSrv.URL,
		"--base-delay", "1ms",
		"--http-retries", "0",
	}
	run := func(t *testing.T, args ...string) string {
		t.Helper()
		out, err := execute(t, append(args, common...)...)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", args[0], err)
		}
		return out
	}

	reportPath := filepath.Join(t.TempDir(), "reports", "register.json")
	run(t, "register", "087-1234", "5", "--network", "tehran-1", "--json", "-o", reportPath)

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	var doc report.JSONDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if doc.Job == nil || doc.Job.Operation != operationRegister || doc.Job.NetworkID != "tehran-1" {
		t.Fatalf("unexpected job %+v", doc.Job)
	}
	result := doc.Job.Result
	if len(result.Succeeded) != 1 || result.Succeeded[0].Key != stubLine {
		t.Errorf("expected %s to succeed, got %+v", stubLine, result.Succeeded)
	}
	if got := result.FailureReasons["5"]; got != model.ReasonNotResolved {
		t.Errorf("expected line 5 to be unresolved, got %q", got)
	}
	if runtime.GOOS != "windows" {
		info, err := os.Stat(reportPath)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected report mode 0600, got %o", perm)
		}
	}

	out := run(t, "register", stubLine)
	if !strings.Contains(out, model.ReasonAlreadyExists) {
		t.Errorf("expected already exists in second run, got:\n%s", out)
	}

	out = run(t, "refresh", stubLogin, "--markdown")
	if !strings.Contains(out, "# adslwatch refresh report") || strings.Contains(out, "Failed Logins") {
		t.Errorf("expected a clean Markdown refresh report, got:\n%s", out)
	}

	out = run(t, "refresh", "--all", "--json")
	var refresh report.JSONDocument
	if err := json.Unmarshal([]byte(out), &refresh); err != nil {
		t.Fatalf("failed to decode refresh report: %v", err)
	}
	if refresh.Refresh == nil || !refresh.Refresh.Results[stubLogin] {
		t.Errorf("expected %s to refresh, got %+v", stubLogin, refresh.Refresh)
	}

	if _, err := execute(t, append([]string{"refresh", "99999999"}, common...)...); err == nil ||
		!strings.Contains(err.Error(), "not registered") {
		t.Errorf("expected not registered error, got %v", err)
	}

	out, err = execute(t, "show", stubLogin, "--config", cfgPath, "--db-dir", dbDir)
	if err != nil {
		t.Fatalf("show: unexpected error: %v", err)
	}
	for _, want := range []string{"Login:    " + stubLogin, "Network:  tehran-1", "ADSL 16M", "12 GB"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected show output to contain %q, got:\n%s", want, out)
		}
	}

	out, err = execute(t, "history", stubLogin, "--config", cfgPath, "--db-dir", dbDir, "--limit", "50")
	if err != nil {
		t.Fatalf("history: unexpected error: %v", err)
	}
	if !strings.Contains(out, model.ReasonSuccess) {
		t.Errorf("expected a successful login in history, got:\n%s", out)
	}
}

func TestShowWithoutDatabase(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, "bulk:\n  workers: 2\n")
	dbDir := filepath.Join(t.TempDir(), "empty")
	_, err := execute(t, "show", stubLogin, "--config", cfgPath, "--db-dir", dbDir)
	if err == nil || !strings.Contains(err.Error(), "no accounts registered") {
		t.Errorf("expected no accounts error, got %v", err)
	}
}
