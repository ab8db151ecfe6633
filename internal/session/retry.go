package session

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// retryPolicy controls the retry transport.
type retryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		maxRetries: 2,
		baseDelay:  500 * time.Millisecond,
		maxDelay:   10 * time.Second,
		sleep:      sleepContext,
	}
}

// delay returns the wait before retry number attempt (starting at 0).
// A Retry-After header given in seconds takes precedence.
func (p retryPolicy) delay(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs >= 0 {
			return min(time.Duration(secs)*time.Second, p.maxDelay)
		}
	}
	d := p.baseDelay << attempt
	if d <= 0 || d > p.maxDelay {
		return p.maxDelay
	}
	return d
}

// retryTransport retries idempotent requests on network errors, 5xx, and
// 429 responses. POSTs go through exactly once.
type retryTransport struct {
	base   http.RoundTripper
	policy retryPolicy
	logger *slog.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return t.base.RoundTrip(req)
	}

	for attempt := 0; ; attempt++ {
		resp, err := t.base.RoundTrip(req)
		if !shouldRetry(resp, err) || attempt >= t.policy.maxRetries || req.Context().Err() != nil {
			return resp, err
		}

		wait := t.policy.delay(attempt, resp)
		if resp != nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024)) //nolint:errcheck
			resp.Body.Close()
		}
		t.logger.Debug("retrying request",
			"url", req.URL.Redacted(),
			"attempt", attempt+1,
			"wait", wait,
		)
		if err := t.policy.sleep(req.Context(), wait); err != nil {
			return nil, err
		}
	}
}

func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
