package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Page is a fetched portal response.
type Page struct {
	// URL is the final URL after redirects.
	URL string

	// StatusCode is the HTTP status of the final response.
	StatusCode int

	// Body is the response body, at most the pool's body cap.
	Body []byte
}

// Handle is one pooled portal session.
type Handle struct {
	// Key is the login key the handle belongs to.
	Key string

	// Client carries the session's cookie jar and transport.
	Client *http.Client

	transport   *http.Transport
	limiter     *rate.Limiter
	userAgent   string
	maxBodySize int64
	now         func() time.Time

	// lastUsed is a UnixNano timestamp.
	lastUsed  atomic.Int64
	closed    atomic.Bool
	closeOnce sync.Once
}

// LastUsed returns when the handle last served a request.
func (h *Handle) LastUsed() time.Time {
	return time.Unix(0, h.lastUsed.Load())
}

// Closed reports whether Close was called.
func (h *Handle) Closed() bool {
	return h.closed.Load()
}

// Close drops idle connections and marks the handle unusable.
// It is safe to call more than once.
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.transport.CloseIdleConnections()
	})
}

// Get fetches rawURL.
func (h *Handle) Get(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return h.do(ctx, req)
}

// PostForm posts values as application/x-www-form-urlencoded to rawURL.
func (h *Handle) PostForm(ctx context.Context, rawURL string, values url.Values) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(ctx, req)
}

func (h *Handle) do(ctx context.Context, req *http.Request) (*Page, error) {
	if h.Closed() {
		return nil, ErrClosed
	}
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	h.touch()

	req.Header.Set("User-Agent", h.userAgent)
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > h.maxBodySize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, h.maxBodySize)
	}

	page := &Page{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       body,
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return page, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return page, nil
}

func (h *Handle) touch() {
	h.lastUsed.Store(h.now().UnixNano())
}
