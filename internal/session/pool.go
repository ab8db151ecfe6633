package session

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// Defaults applied by NewPool.
const (
	// DefaultTTL is how long a handle may stay idle before it is swept.
	DefaultTTL = 24 * time.Hour

	// DefaultTimeout bounds every single HTTP request.
	DefaultTimeout = 25 * time.Second

	// DefaultMaxBodySize caps the bytes read from one response.
	DefaultMaxBodySize int64 = 4 * 1024 * 1024

	// DefaultMaxConnsPerHost limits open connections per handle and host.
	DefaultMaxConnsPerHost = 4

	// DefaultUserAgent is sent with every portal request.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

	maxRedirects = 10
)

// Pool hands out one Handle per login key.
type Pool struct {
	// mu guards handles. Handles are used outside the lock.
	mu      sync.Mutex
	handles map[string]*Handle

	ttl             time.Duration
	timeout         time.Duration
	maxBodySize     int64
	maxConnsPerHost int
	userAgent       string
	now             func() time.Time

	// dialer routes connections through a proxy when set.
	dialer proxy.Dialer

	// limit and burst configure each handle's request pacer.
	limit rate.Limit
	burst int

	retry  retryPolicy
	logger *slog.Logger
}

// Option configures a Pool.
type Option func(*Pool)

// WithTTL sets how long an idle handle survives.
func WithTTL(ttl time.Duration) Option {
	return func(p *Pool) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithMaxBodySize sets the response body cap.
func WithMaxBodySize(size int64) Option {
	return func(p *Pool) {
		if size > 0 {
			p.maxBodySize = size
		}
	}
}

// WithMaxConnsPerHost sets the connection limit per host of each handle.
func WithMaxConnsPerHost(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.maxConnsPerHost = n
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(p *Pool) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

// WithClock replaces time.Now. Used by tests to drive expiry.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) {
		if now != nil {
			p.now = now
		}
	}
}

// WithDialer routes all portal traffic through d, typically a SOCKS5 dialer
// from the tor package.
func WithDialer(d proxy.Dialer) Option {
	return func(p *Pool) {
		p.dialer = d
	}
}

// WithRateLimit paces requests of every handle. The default is unlimited.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(p *Pool) {
		p.limit = limit
		if burst > 0 {
			p.burst = burst
		}
	}
}

// WithRetry sets how often idempotent requests are retried and the first
// backoff delay. Zero retries disables the retry transport.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(p *Pool) {
		if maxRetries >= 0 {
			p.retry.maxRetries = maxRetries
		}
		if baseDelay > 0 {
			p.retry.baseDelay = baseDelay
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

// NewPool creates an empty pool.
func NewPool(opts ...Option) *Pool {
	p := &Pool{
		handles:         make(map[string]*Handle),
		ttl:             DefaultTTL,
		timeout:         DefaultTimeout,
		maxBodySize:     DefaultMaxBodySize,
		maxConnsPerHost: DefaultMaxConnsPerHost,
		userAgent:       DefaultUserAgent,
		now:             time.Now,
		limit:           rate.Inf,
		burst:           1,
		retry:           defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Acquire returns the handle for key, creating it on first use.
func (p *Pool) Acquire(key string) *Handle {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.handles[key]; ok && !h.Closed() {
		h.touch()
		return h
	}

	h := p.newHandle(key)
	p.handles[key] = h
	p.logger.Debug("created session", "key", key)
	return h
}

// SweepExpired closes and removes every handle idle for longer than the TTL
// at now. It returns the number of handles removed.
func (p *Pool) SweepExpired(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for key, h := range p.handles {
		if now.Sub(h.LastUsed()) > p.ttl || h.Closed() {
			delete(p.handles, key)
			h.Close()
			removed++
		}
	}
	return removed
}

// Run sweeps the pool every interval until ctx is done.
func (p *Pool) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := p.SweepExpired(p.now()); n > 0 {
				p.logger.Debug("swept idle sessions", "count", n)
			}
		}
	}
}

// Len returns the number of live handles.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles)
}

// Close closes every handle and empties the pool.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, h := range p.handles {
		h.Close()
		delete(p.handles, key)
	}
}

func (p *Pool) newHandle(key string) *Handle {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        p.maxConnsPerHost * 2,
		MaxIdleConnsPerHost: p.maxConnsPerHost,
		MaxConnsPerHost:     p.maxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if p.dialer != nil {
		transport.Proxy = nil
		transport.DialContext = dialContext(p.dialer)
	}

	var rt http.RoundTripper = transport
	if p.retry.maxRetries > 0 {
		rt = &retryTransport{base: transport, policy: p.retry, logger: p.logger}
	}

	// cookiejar.New only fails on invalid options.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}) //nolint:errcheck

	h := &Handle{
		Key: key,
		Client: &http.Client{
			Transport: rt,
			Timeout:   p.timeout,
			Jar:       jar,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		transport:   transport,
		limiter:     rate.NewLimiter(p.limit, p.burst),
		userAgent:   p.userAgent,
		maxBodySize: p.maxBodySize,
		now:         p.now,
	}
	h.touch()
	return h
}

// dialContext adapts a proxy.Dialer to http.Transport.DialContext.
func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}
