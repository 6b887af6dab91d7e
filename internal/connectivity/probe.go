package connectivity

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"
)

const defaultDialTimeout = 2 * time.Second

// DialProber treats a successful TCP handshake with the content host as "reachable"
type DialProber struct {
	address string
	timeout time.Duration
	dialer  net.Dialer
}

// NewDialProber creates a prober for a host:port address
func NewDialProber(address string, timeout time.Duration) *DialProber {
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	return &DialProber{address: address, timeout: timeout}
}

// Probe dials the address and closes the connection immediately
func (p *DialProber) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(ctx, "tcp", p.address)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// AddressForEndpoint derives the host:port to probe from an endpoint URL.
// The scheme's default port is used when the URL has none.
func AddressForEndpoint(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to parse endpoint: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("endpoint %q has no host", endpoint)
	}

	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "http":
			port = "80"
		default:
			port = "443"
		}
	}
	return net.JoinHostPort(host, port), nil
}
