// Package tor provides the optional egress route for portal traffic.
//
// Portal requests normally leave directly. When a SOCKS5 proxy address is
// configured, or the embedded Tor daemon (tornago) is enabled, Egress
// exposes a proxy.Dialer that the session pool installs on every transport.
package tor
