package tor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/net/proxy"
)

// EgressConfig selects how portal traffic leaves the host.
// An empty config means direct connections.
type EgressConfig struct {
	// ProxyAddress is an external SOCKS5 proxy.
	ProxyAddress string

	// Embedded starts an embedded Tor daemon.
	Embedded bool

	// StartupTimeout bounds the embedded daemon's bootstrap.
	StartupTimeout time.Duration
}

// Egress is the outbound route chosen by an EgressConfig.
type Egress struct {
	client   *Client
	embedded *EmbeddedTor
}

// OpenEgress prepares the route described by cfg. An external proxy is
// checked with a SOCKS5 greeting before use.
func OpenEgress(ctx context.Context, cfg EgressConfig, logger *slog.Logger) (*Egress, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch {
	case cfg.Embedded:
		embedded := NewEmbeddedTor(WithStartupTimeout(cfg.StartupTimeout))
		logger.Info("starting embedded Tor daemon", "timeout", cfg.StartupTimeout)
		if err := embedded.Start(ctx); err != nil {
			return nil, err
		}
		client, err := embedded.NewClient()
		if err != nil {
			_ = embedded.Stop() //nolint:errcheck // Best effort cleanup
			return nil, err
		}
		logger.Info("embedded Tor daemon ready", "socks", embedded.SocksAddr())
		return &Egress{client: client, embedded: embedded}, nil

	case cfg.ProxyAddress != "":
		client, err := NewClient(cfg.ProxyAddress)
		if err != nil {
			return nil, err
		}
		if status := client.CheckConnection(ctx); status != ProxyStatusOK {
			return nil, fmt.Errorf("proxy %s: %w", cfg.ProxyAddress, status.Error())
		}
		logger.Debug("using SOCKS5 proxy", "address", cfg.ProxyAddress)
		return &Egress{client: client}, nil

	default:
		return &Egress{}, nil
	}
}

// Dialer returns the proxy dialer, or nil for direct connections.
func (e *Egress) Dialer() proxy.Dialer {
	if e.client == nil {
		return nil
	}
	return e.client
}

// Direct reports whether traffic leaves without a proxy.
func (e *Egress) Direct() bool {
	return e.client == nil
}

// Close stops the embedded daemon, if any.
func (e *Egress) Close() error {
	if e.embedded == nil {
		return nil
	}
	return e.embedded.Stop()
}
