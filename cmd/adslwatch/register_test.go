package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/adslwatch/internal/config"
)

func TestReadLines(t *testing.T) {
	t.Parallel()

	input := "0871234\n\n# comment\n  087-1235  \n"
	got, err := readLines(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"0871234", "087-1235"}, got); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestReadUsernames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    map[string]string
		wantErr bool
	}{
		{
			name:  "with header",
			input: "line,login\n0871234,10871234\n0871235, 10871235\n",
			want:  map[string]string{"0871234": "10871234", "0871235": "10871235"},
		},
		{
			name:  "without header and with comments",
			input: "# exported from billing\n0871234,10871234\n\n",
			want:  map[string]string{"0871234": "10871234"},
		},
		{
			name:  "repeated line keeps the last login",
			input: "0871234,1\n0871234,10871234\n",
			want:  map[string]string{"0871234": "10871234"},
		},
		{
			name:    "missing field",
			input:   "0871234\n",
			wantErr: true,
		},
		{
			name:    "empty login",
			input:   "0871234,\n",
			wantErr: true,
		},
		{
			name:    "extra field",
			input:   "0871234,10871234,x\n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := readUsernames(strings.NewReader(tt.input))
			if tt.wantErr {
				if !errors.Is(err, errMalformedMapping) {
					t.Errorf("expected errMalformedMapping, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("logins mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRegisterCmdArguments(t *testing.T) {
	t.Parallel()

	t.Run("requires lines", func(t *testing.T) {
		t.Parallel()
		if _, err := execute(t, "register"); !errors.Is(err, errNoLines) {
			t.Errorf("expected errNoLines, got %v", err)
		}
	})

	t.Run("empty list file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "lines.txt")
		if err := os.WriteFile(path, []byte("# nothing yet\n"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := execute(t, "register", "--list", path); !errors.Is(err, errNoLines) {
			t.Errorf("expected errNoLines, got %v", err)
		}
	})

	t.Run("missing list file", func(t *testing.T) {
		t.Parallel()
		_, err := execute(t, "register", "--list", filepath.Join(t.TempDir(), "missing.txt"))
		if err == nil || !strings.Contains(err.Error(), "failed to open list file") {
			t.Errorf("expected open error, got %v", err)
		}
	})

	t.Run("line arguments with usernames", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "logins.csv")
		if err := os.WriteFile(path, []byte("0871234,10871234\n"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := execute(t, "register", "0871234", "--usernames", path); !errors.Is(err, errArgsWithLogins) {
			t.Errorf("expected errArgsWithLogins, got %v", err)
		}
	})

	t.Run("list and usernames are exclusive", func(t *testing.T) {
		t.Parallel()
		if _, err := execute(t, "register", "--list", "a", "--usernames", "b"); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("requires a portal URL", func(t *testing.T) {
		t.Parallel()
		cfgPath := writeConfigFile(t, "bulk:\n  workers: 2\n")
		_, err := execute(t, "register", "0871234", "--config", cfgPath, "--db-dir", t.TempDir())
		if !errors.Is(err, config.ErrNoPortalURL) {
			t.Errorf("expected ErrNoPortalURL, got %v", err)
		}
	})
}
