package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newService(t *testing.T, text string, status int) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case healthPath:
			w.WriteHeader(status)
		case predictPath:
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			if status != http.StatusOK {
				w.WriteHeader(status)
				return
			}
			file, _, err := r.FormFile(fileField)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			defer file.Close()
			data, err := io.ReadAll(file)
			if err != nil || string(data) != "PNGDATA" {
				http.Error(w, "unexpected image", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"text": text})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{name: "http", baseURL: "http://127.0.0.1:8000", wantErr: false},
		{name: "trailing slash", baseURL: "https://solver.local/", wantErr: false},
		{name: "no scheme", baseURL: "127.0.0.1:8000", wantErr: true},
		{name: "empty", baseURL: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewClient(tt.baseURL)
			if tt.wantErr && !errors.Is(err, ErrInvalidBaseURL) {
				t.Errorf("expected ErrInvalidBaseURL, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestClientSolve(t *testing.T) {
	t.Parallel()

	t.Run("returns text", func(t *testing.T) {
		t.Parallel()

		server := newService(t, "x7k2", http.StatusOK)
		c, err := NewClient(server.URL + "/")
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		got, err := c.Solve(context.Background(), []byte("PNGDATA"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "x7k2" {
			t.Errorf("expected x7k2, got %q", got)
		}
	})

	t.Run("empty answer is not an error", func(t *testing.T) {
		t.Parallel()

		server := newService(t, "", http.StatusOK)
		c, err := NewClient(server.URL)
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		got, err := c.Solve(context.Background(), []byte("PNGDATA"))
		if err != nil || got != "" {
			t.Errorf("expected empty answer without error, got %q, %v", got, err)
		}
	})

	t.Run("non-2xx status", func(t *testing.T) {
		t.Parallel()

		server := newService(t, "", http.StatusInternalServerError)
		c, err := NewClient(server.URL)
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		if _, err := c.Solve(context.Background(), []byte("PNGDATA")); !errors.Is(err, ErrServiceStatus) {
			t.Errorf("expected ErrServiceStatus, got %v", err)
		}
	})

	t.Run("empty image", func(t *testing.T) {
		t.Parallel()

		c, err := NewClient("http://127.0.0.1:1")
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		if _, err := c.Solve(context.Background(), nil); !errors.Is(err, ErrEmptyImage) {
			t.Errorf("expected ErrEmptyImage, got %v", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()

		block := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-block:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(block)

		c, err := NewClient(server.URL, WithTimeout(50*time.Millisecond))
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		if _, err := c.Solve(context.Background(), []byte("PNGDATA")); err == nil {
			t.Error("expected timeout error")
		}
	})
}

func TestClientOptions(t *testing.T) {
	t.Parallel()

	t.Run("timeout does not modify the given client", func(t *testing.T) {
		t.Parallel()

		for name, opts := range map[string]func(*http.Client) []Option{
			"timeout last": func(hc *http.Client) []Option {
				return []Option{WithHTTPClient(hc), WithTimeout(3 * time.Second)}
			},
			"timeout first": func(hc *http.Client) []Option {
				return []Option{WithTimeout(3 * time.Second), WithHTTPClient(hc)}
			},
		} {
			hc := &http.Client{Timeout: time.Minute}
			c, err := NewClient("http://127.0.0.1:8000", opts(hc)...)
			if err != nil {
				t.Fatalf("%s: failed to create client: %v", name, err)
			}
			if hc.Timeout != time.Minute {
				t.Errorf("%s: caller's client timeout changed to %v", name, hc.Timeout)
			}
			if c.httpClient.Timeout != 3*time.Second {
				t.Errorf("%s: expected 3s timeout, got %v", name, c.httpClient.Timeout)
			}
		}
	})

	t.Run("given client keeps its timeout", func(t *testing.T) {
		t.Parallel()

		hc := &http.Client{Timeout: time.Minute}
		c, err := NewClient("http://127.0.0.1:8000", WithHTTPClient(hc))
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		if c.httpClient.Timeout != time.Minute {
			t.Errorf("expected 1m timeout, got %v", c.httpClient.Timeout)
		}
	})
}

func TestClientProbe(t *testing.T) {
	t.Parallel()

	up := newService(t, "", http.StatusOK)
	down := newService(t, "", http.StatusServiceUnavailable)

	c, err := NewClient(up.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	if err := c.Probe(context.Background()); err != nil {
		t.Errorf("expected healthy service, got %v", err)
	}

	c, err = NewClient(down.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	if err := c.Probe(context.Background()); !errors.Is(err, ErrServiceStatus) {
		t.Errorf("expected ErrServiceStatus, got %v", err)
	}
}

// countingSolver records how many calls overlap.
type countingSolver struct {
	active    atomic.Int32
	maxActive atomic.Int32
	calls     atomic.Int32
}

func (s *countingSolver) Solve(_ context.Context, _ []byte) (string, error) {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	s.calls.Add(1)
	for {
		cur := s.maxActive.Load()
		if n <= cur || s.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return "ok", nil
}

func TestSerialized(t *testing.T) {
	t.Parallel()

	t.Run("one call at a time", func(t *testing.T) {
		t.Parallel()

		inner := &countingSolver{}
		s := NewSerialized(inner)

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.Solve(context.Background(), []byte("img")); err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		if inner.calls.Load() != 8 {
			t.Errorf("expected 8 calls, got %d", inner.calls.Load())
		}
		if inner.maxActive.Load() != 1 {
			t.Errorf("expected at most 1 concurrent call, got %d", inner.maxActive.Load())
		}
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		entered := make(chan struct{})
		blocking := solverFunc(func(_ context.Context, _ []byte) (string, error) {
			close(entered)
			<-release
			return "ok", nil
		})
		s := NewSerialized(blocking)

		done := make(chan struct{})
		go func() {
			_, _ = s.Solve(context.Background(), nil)
			close(done)
		}()
		<-entered

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := s.Solve(ctx, nil); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
		close(release)
		<-done
	})
}

type solverFunc func(ctx context.Context, image []byte) (string, error)

func (f solverFunc) Solve(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}
