package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
)

var errEmptyHost = errors.New("empty host")

type directDialer struct {
	cfg      Config
	resolver Resolver
}

// NewDirectDialer returns a Dialer that connects straight to the target.
//
// When resolver is non-nil, domain targets are resolved through it to an
// IPv4 address before dialing. A nil resolver leaves name resolution to
// net.Dialer, which may pick IPv6.
func NewDirectDialer(cfg Config, resolver Resolver) Dialer {
	return &directDialer{cfg: cfg, resolver: resolver}
}

func (d *directDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, address, err)
	}
	// net.Dialer treats an empty host as the local system.
	if host == "" {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, address, errEmptyHost)
	}

	target := address
	if d.resolver != nil {
		if _, err := netip.ParseAddr(host); err != nil {
			ip, err := d.resolver.LookupIPv4(ctx, host)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrConnect, address, err)
			}
			target = net.JoinHostPort(ip.String(), port)
		}
	}

	dd := net.Dialer{Timeout: d.cfg.DialTimeout, KeepAliveConfig: d.cfg.KeepAlive}

	conn, err := dd.DialContext(ctx, network, target)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s %s: %w", ErrConnect, network, address, err)
	}

	return conn, nil
}
