package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/adslwatch/internal/portal"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "adslwatch"

	// DefaultCaptchaURL is the address the CAPTCHA inference service listens
	// on when it runs next to adslwatch.
	DefaultCaptchaURL = "http://127.0.0.1:8000"

	// DefaultTimeout bounds a single portal request. The portal is slow under
	// load; shorter values turn busy periods into spurious retries.
	DefaultTimeout = 25 * time.Second

	// DefaultCaptchaTimeout bounds a single inference call.
	DefaultCaptchaTimeout = 20 * time.Second

	// DefaultSessionTTL is how long an idle session keeps its cookies.
	DefaultSessionTTL = 24 * time.Hour

	// DefaultSweepInterval is how often idle sessions are evicted.
	DefaultSweepInterval = time.Hour

	// DefaultMaxAttempts is the per-account attempt budget.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay and DefaultBackoffFactor shape the delay between
	// attempts: BaseDelay * Factor^(attempt-1).
	DefaultBaseDelay     = time.Second
	DefaultBackoffFactor = 1.5

	// DefaultWorkers is the number of lines processed concurrently.
	DefaultWorkers = 6

	// DefaultResolverConcurrency is the number of candidate logins tried at once
	// for a single line.
	DefaultResolverConcurrency = 4

	// DefaultHTTPRetries is the number of transport-level retries for
	// idempotent portal requests.
	DefaultHTTPRetries = 2

	// DefaultUserAgent is sent with every portal request.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) adslwatch/1.0"

	// DefaultMaxBodySize limits the response body read from the portal.
	DefaultMaxBodySize = 4 * 1024 * 1024 // 4MB

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// Config holds all configuration options for adslwatch.
// It is populated from CLI flags and the optional config file and passed
// through the application rather than kept in global state.
type Config struct {
	// PortalURL is the login page of the subscriber portal. The same URL
	// receives the credential and CAPTCHA posts.
	PortalURL string

	// CaptchaURL is the base URL of the CAPTCHA inference service.
	CaptchaURL string

	// Timeout is the per-request timeout for portal calls.
	Timeout time.Duration

	// CaptchaTimeout is the per-call timeout for the inference service.
	CaptchaTimeout time.Duration

	// SessionTTL is how long an idle session is kept.
	SessionTTL time.Duration

	// SweepInterval is how often idle sessions are evicted.
	SweepInterval time.Duration

	// MaxAttempts is the number of login attempts per account.
	MaxAttempts int

	// BaseDelay and BackoffFactor control the delay between attempts.
	BaseDelay     time.Duration
	BackoffFactor float64

	// Workers is the number of lines processed concurrently in a bulk job.
	Workers int

	// ResolverConcurrency is the number of candidates tried at once per line.
	ResolverConcurrency int

	// ItemTimeout bounds the time spent on one line. 0 disables the deadline.
	ItemTimeout time.Duration

	// RateLimit is the maximum requests per second per session. 0 means unlimited.
	RateLimit float64

	// HTTPRetries is the number of transport retries for GET requests.
	HTTPRetries int

	// UserAgent is the User-Agent header sent to the portal.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default.
	MaxBodySize int64

	// NetworkID tags newly registered credentials.
	NetworkID string

	// DefaultSecret is the portal secret tried for new lines. When empty the
	// line number itself is used, which is the portal's factory default.
	DefaultSecret string

	// RequiredPlan rejects accounts whose plan does not contain this text.
	RequiredPlan string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// UseEmbeddedTor starts an embedded Tor daemon and routes portal traffic
	// through it. Mutually exclusive with ProxyAddress.
	UseEmbeddedTor bool

	// TorStartupTimeout is the maximum time to wait for the embedded Tor
	// daemon to bootstrap.
	TorStartupTimeout time.Duration

	// DBDir is the directory holding the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/adslwatch on Linux).
	DBDir string

	// Verbose enables debug logging. When false, only warnings and errors are logged.
	Verbose bool

	// LogJSON selects the JSON log handler.
	LogJSON bool

	// JSONReport and MarkdownReport select the report format. They are
	// mutually exclusive; the default is plain text.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile is the output file path for the report. When empty the
	// report goes to stdout.
	ReportFile string

	// ConfigFilePath is the path to the configuration file. If empty,
	// FindConfigFile searches the usual locations.
	ConfigFilePath string

	// Layout describes the portal markup. It starts as portal.DefaultLayout
	// and is overridden by the config file.
	Layout portal.Layout
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		CaptchaURL:          DefaultCaptchaURL,
		Timeout:             DefaultTimeout,
		CaptchaTimeout:      DefaultCaptchaTimeout,
		SessionTTL:          DefaultSessionTTL,
		SweepInterval:       DefaultSweepInterval,
		MaxAttempts:         DefaultMaxAttempts,
		BaseDelay:           DefaultBaseDelay,
		BackoffFactor:       DefaultBackoffFactor,
		Workers:             DefaultWorkers,
		ResolverConcurrency: DefaultResolverConcurrency,
		HTTPRetries:         DefaultHTTPRetries,
		UserAgent:           DefaultUserAgent,
		MaxBodySize:         DefaultMaxBodySize,
		TorStartupTimeout:   DefaultTorStartupTimeout,
		DBDir:               XDGDataDir(),
		Layout:              portal.DefaultLayout(),
	}
}

// XDGDataDir returns the XDG data directory for adslwatch.
// On Linux: ~/.local/share/adslwatch
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for adslwatch.
// On Linux: ~/.config/adslwatch
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found. An empty PortalURL is accepted here because commands such
// as "captcha probe" never reach the portal; use RequirePortal for those
// that do.
func (c *Config) Validate() error {
	if c.PortalURL != "" && !isHTTPURL(c.PortalURL) {
		return ErrInvalidPortalURL
	}
	if !isHTTPURL(c.CaptchaURL) {
		return ErrInvalidCaptchaURL
	}
	if c.Timeout <= 0 || c.CaptchaTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.SessionTTL <= 0 {
		return ErrInvalidSessionTTL
	}
	if c.Workers <= 0 || c.ResolverConcurrency <= 0 {
		return ErrInvalidWorkers
	}
	if c.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if c.BaseDelay < 0 || c.BackoffFactor < 1 {
		return ErrInvalidBackoff
	}
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	if c.ItemTimeout < 0 {
		return ErrInvalidItemTimeout
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.ProxyAddress != "" && c.UseEmbeddedTor {
		return ErrConflictingEgress
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}

// RequirePortal returns ErrNoPortalURL when no portal URL is configured.
func (c *Config) RequirePortal() error {
	if c.PortalURL == "" {
		return ErrNoPortalURL
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
