package config

import (
	"time"

	"github.com/nao1215/adslwatch/internal/portal"
)

// File is the YAML configuration file.
//
// Example:
//
//	portal:
//	  loginURL: "https://panel.example.net/login.php"
//	  rateLimit: 2
//	  layout:
//	    captchaField: "capres"
//	    labels:
//	      plan: ["سرویس", "Plan"]
//	captcha:
//	  url: "http://127.0.0.1:8000"
//	  timeout: 20s
//	bulk:
//	  networkID: "tehran-1"
//	  workers: 6
type File struct {
	Portal  PortalSection  `yaml:"portal"`
	Captcha CaptchaSection `yaml:"captcha"`
	Bulk    BulkSection    `yaml:"bulk"`
}

// PortalSection configures the subscriber portal.
type PortalSection struct {
	LoginURL  string        `yaml:"loginURL,omitempty"`
	UserAgent string        `yaml:"userAgent,omitempty"`
	RateLimit float64       `yaml:"rateLimit,omitempty"`
	Layout    portal.Layout `yaml:"layout,omitempty"`
}

// CaptchaSection configures the CAPTCHA inference service.
type CaptchaSection struct {
	URL     string        `yaml:"url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// BulkSection configures registration and refresh jobs.
type BulkSection struct {
	NetworkID     string `yaml:"networkID,omitempty"`
	DefaultSecret string `yaml:"defaultSecret,omitempty"`
	RequiredPlan  string `yaml:"requiredPlan,omitempty"`
	Workers       int    `yaml:"workers,omitempty"`
	MaxAttempts   int    `yaml:"maxAttempts,omitempty"`
}

// Flag names whose values the config file may provide.
const (
	FlagPortalURL      = "portal-url"
	FlagUserAgent      = "user-agent"
	FlagRateLimit      = "rate-limit"
	FlagCaptchaURL     = "captcha-url"
	FlagCaptchaTimeout = "captcha-timeout"
	FlagNetwork        = "network"
	FlagSecret         = "secret"
	FlagPlan           = "plan"
	FlagWorkers        = "workers"
	FlagMaxAttempts    = "max-attempts"
)

// ApplyTo copies the values set in the file into c. A value is skipped when
// it is empty in the file or when flagSet reports that the matching flag was
// given on the command line. A nil flagSet applies every non-empty value.
// The layout is always merged over c.Layout.
func (f *File) ApplyTo(c *Config, flagSet func(name string) bool) {
	if flagSet == nil {
		flagSet = func(string) bool { return false }
	}

	setString := func(flag, value string, dst *string) {
		if value != "" && !flagSet(flag) {
			*dst = value
		}
	}
	setString(FlagPortalURL, f.Portal.LoginURL, &c.PortalURL)
	setString(FlagUserAgent, f.Portal.UserAgent, &c.UserAgent)
	setString(FlagCaptchaURL, f.Captcha.URL, &c.CaptchaURL)
	setString(FlagNetwork, f.Bulk.NetworkID, &c.NetworkID)
	setString(FlagSecret, f.Bulk.DefaultSecret, &c.DefaultSecret)
	setString(FlagPlan, f.Bulk.RequiredPlan, &c.RequiredPlan)

	if f.Portal.RateLimit != 0 && !flagSet(FlagRateLimit) {
		c.RateLimit = f.Portal.RateLimit
	}
	if f.Captcha.Timeout != 0 && !flagSet(FlagCaptchaTimeout) {
		c.CaptchaTimeout = f.Captcha.Timeout
	}
	if f.Bulk.Workers != 0 && !flagSet(FlagWorkers) {
		c.Workers = f.Bulk.Workers
	}
	if f.Bulk.MaxAttempts != 0 && !flagSet(FlagMaxAttempts) {
		c.MaxAttempts = f.Bulk.MaxAttempts
	}

	c.Layout = f.Portal.Layout.Merge(c.Layout)
}
