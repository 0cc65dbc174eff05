package dialer

import (
	"context"
	"errors"
	"net"
	"net/netip"
)

var (
	// ErrConnect wraps every failure to open an upstream connection.
	ErrConnect = errors.New("connect failed")

	// ErrResolve wraps every failed lookup, including lookups that
	// succeed but carry no IPv4 address.
	ErrResolve = errors.New("resolve failed")
)

// Dialer mirrors the net.Dialer interface.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Resolver maps a host name or address literal to a single IPv4 address.
type Resolver interface {
	LookupIPv4(ctx context.Context, host string) (netip.Addr, error)
}

// NewResolver returns a DNSResolver when cfg.DNSServer is set and a
// SystemResolver otherwise.
func NewResolver(cfg Config) (Resolver, error) {
	if cfg.DNSServer == "" {
		return NewSystemResolver(cfg), nil
	}
	return NewDNSResolver(cfg)
}

// literalIPv4 handles address literals without a lookup. ok is false when
// host is not an IP literal at all.
func literalIPv4(host string) (ip netip.Addr, ok bool, err error) {
	ip, perr := netip.ParseAddr(host)
	if perr != nil {
		return netip.Addr{}, false, nil
	}
	ip = ip.Unmap()
	if !ip.Is4() {
		return netip.Addr{}, true, &net.AddrError{Err: "not an IPv4 address", Addr: host}
	}
	return ip, true, nil
}
