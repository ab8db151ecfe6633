package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nao1215/adslwatch/internal/config"
	"github.com/nao1215/adslwatch/internal/log"
)

// Flag names that have no config file counterpart.
const (
	flagTimeout             = "timeout"
	flagSessionTTL          = "session-ttl"
	flagBaseDelay           = "base-delay"
	flagBackoffFactor       = "backoff-factor"
	flagResolverConcurrency = "resolver-concurrency"
	flagHTTPRetries         = "http-retries"
	flagProxy               = "proxy"
	flagTor                 = "tor"
	flagTorTimeout          = "tor-timeout"
	flagDBDir               = "db-dir"
	flagItemTimeout         = "item-timeout"
	flagJSON                = "json"
	flagMarkdown            = "markdown"
	flagOutput              = "output"
)

// bindPortalFlags registers the flags that shape portal traffic.
func bindPortalFlags(fs *pflag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.PortalURL, config.FlagPortalURL, cfg.PortalURL,
		"Login page URL of the subscriber portal")
	fs.StringVar(&cfg.UserAgent, config.FlagUserAgent, cfg.UserAgent,
		"User-Agent header sent to the portal")
	fs.Float64Var(&cfg.RateLimit, config.FlagRateLimit, cfg.RateLimit,
		"Maximum requests per second per session (0 = unlimited)")
	fs.DurationVar(&cfg.Timeout, flagTimeout, cfg.Timeout,
		"Timeout for each portal request")
	fs.DurationVar(&cfg.SessionTTL, flagSessionTTL, cfg.SessionTTL,
		"Time an idle portal session is kept")
	fs.IntVar(&cfg.MaxAttempts, config.FlagMaxAttempts, cfg.MaxAttempts,
		"Login attempts per account before giving up")
	fs.DurationVar(&cfg.BaseDelay, flagBaseDelay, cfg.BaseDelay,
		"Delay before the second login attempt")
	fs.Float64Var(&cfg.BackoffFactor, flagBackoffFactor, cfg.BackoffFactor,
		"Multiplier applied to the delay after every failed attempt")
	fs.IntVar(&cfg.ResolverConcurrency, flagResolverConcurrency, cfg.ResolverConcurrency,
		"Login name candidates tried at once per line")
	fs.IntVar(&cfg.HTTPRetries, flagHTTPRetries, cfg.HTTPRetries,
		"Transport retries for idempotent portal requests")

	fs.StringVar(&cfg.ProxyAddress, flagProxy, "",
		"SOCKS5 proxy address for portal traffic (host:port)")
	fs.BoolVar(&cfg.UseEmbeddedTor, flagTor, false,
		"Route portal traffic through an embedded Tor daemon")
	fs.DurationVar(&cfg.TorStartupTimeout, flagTorTimeout, cfg.TorStartupTimeout,
		"Maximum time to wait for the embedded Tor daemon to bootstrap")
}

// bindCaptchaFlags registers the CAPTCHA service flags.
func bindCaptchaFlags(fs *pflag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.CaptchaURL, config.FlagCaptchaURL, cfg.CaptchaURL,
		"Base URL of the CAPTCHA inference service")
	fs.DurationVar(&cfg.CaptchaTimeout, config.FlagCaptchaTimeout, cfg.CaptchaTimeout,
		"Timeout for each CAPTCHA prediction")
}

func bindStoreFlags(fs *pflag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.DBDir, flagDBDir, cfg.DBDir,
		"Directory holding the account database")
}

// bindWorkerFlags registers the bulk job pacing flags.
func bindWorkerFlags(fs *pflag.FlagSet, cfg *config.Config) {
	fs.IntVarP(&cfg.Workers, config.FlagWorkers, "w", cfg.Workers,
		"Number of accounts processed concurrently")
	fs.DurationVar(&cfg.ItemTimeout, flagItemTimeout, 0,
		"Maximum time spent on one line (0 = no limit)")
}

// bindRegistrationFlags registers the flags that apply to new lines only.
func bindRegistrationFlags(fs *pflag.FlagSet, cfg *config.Config) {
	fs.StringVarP(&cfg.NetworkID, config.FlagNetwork, "n", "",
		"Network tag stored with new registrations")
	fs.StringVar(&cfg.DefaultSecret, config.FlagSecret, "",
		"Portal secret to try for new lines (default: the line number)")
	fs.StringVar(&cfg.RequiredPlan, config.FlagPlan, "",
		"Only register accounts whose plan contains this text")
}

func bindReportFlags(fs *pflag.FlagSet, cfg *config.Config) {
	fs.BoolVar(&cfg.JSONReport, flagJSON, false, "Output report in JSON format")
	fs.BoolVar(&cfg.MarkdownReport, flagMarkdown, false, "Output report in Markdown format")
	fs.StringVarP(&cfg.ReportFile, flagOutput, "o", "",
		"Output file path for the report (default: stdout)")
}

// loadConfig completes cfg with the global flags and the configuration
// file, validates it and returns the logger for the command. Flags given
// on the command line take precedence over the file.
func loadConfig(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	flags := cmd.Flags()

	var err error
	if cfg.Verbose, err = boolFlag(flags, "verbose"); err != nil {
		return nil, err
	}
	if cfg.LogJSON, err = boolFlag(flags, "log-json"); err != nil {
		return nil, err
	}
	if f := flags.Lookup("config"); f != nil {
		cfg.ConfigFilePath = f.Value.String()
	}

	if err := applyConfigFile(cfg, flags.Changed); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return log.New(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogJSON), nil
}

// applyConfigFile merges the configuration file into cfg. A missing file
// is only an error when its path was given explicitly.
func applyConfigFile(cfg *config.Config, flagSet func(string) bool) error {
	path := config.FindConfigFile(cfg.ConfigFilePath)
	if path == "" {
		if cfg.ConfigFilePath != "" {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		return nil
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil
		}
		return err
	}
	file.ApplyTo(cfg, flagSet)
	return nil
}

// boolFlag returns the value of a flag that may not be registered on cmd.
func boolFlag(flags *pflag.FlagSet, name string) (bool, error) {
	if flags.Lookup(name) == nil {
		return false, nil
	}
	return flags.GetBool(name)
}
