package dialer

import (
	"context"
	"fmt"
	"net"
	"net/netip"
)

// SystemResolver looks up A records through net.Resolver, which follows
// the host's resolv.conf, hosts file and nsswitch configuration.
type SystemResolver struct {
	cfg      Config
	Resolver *net.Resolver
}

func NewSystemResolver(cfg Config) *SystemResolver {
	return &SystemResolver{cfg: cfg, Resolver: net.DefaultResolver}
}

// LookupIPv4 returns the first IPv4 address for host. IPv4 literals are
// returned unchanged and IPv6 literals fail.
func (r *SystemResolver) LookupIPv4(ctx context.Context, host string) (netip.Addr, error) {
	if ip, ok, err := literalIPv4(host); ok {
		if err != nil {
			return netip.Addr{}, fmt.Errorf("%w: %w", ErrResolve, err)
		}
		return ip, nil
	}

	if r.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.DialTimeout)
		defer cancel()
	}

	ips, err := r.Resolver.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %s: %w", ErrResolve, host, err)
	}
	for _, ip := range ips {
		if ip = ip.Unmap(); ip.Is4() {
			return ip, nil
		}
	}
	return netip.Addr{}, fmt.Errorf("%w: %s: no ipv4 address", ErrResolve, host)
}
