package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

const defaultDNSTimeout = 5 * time.Second

// DNSResolver sends A queries straight to one DNS server. Truncated UDP
// answers are retried over TCP.
type DNSResolver struct {
	server string
	udp    *dns.Client
	tcp    *dns.Client
}

// NewDNSResolver builds a resolver for cfg.DNSServer. Port 53 is assumed
// when the server has none.
func NewDNSResolver(cfg Config) (*DNSResolver, error) {
	if cfg.DNSServer == "" {
		return nil, errors.New("dns resolver: missing server")
	}

	server := cfg.DNSServer
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	host, _, err := net.SplitHostPort(server)
	if err != nil || host == "" {
		return nil, fmt.Errorf("dns resolver: invalid server %q", cfg.DNSServer)
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultDNSTimeout
	}

	return &DNSResolver{
		server: server,
		udp:    &dns.Client{Net: "udp", Timeout: timeout},
		tcp:    &dns.Client{Net: "tcp", Timeout: timeout},
	}, nil
}

// Server returns the host:port being queried.
func (r *DNSResolver) Server() string {
	return r.server
}

// LookupIPv4 returns the first A record for host. IPv4 literals are
// returned unchanged and IPv6 literals fail.
func (r *DNSResolver) LookupIPv4(ctx context.Context, host string) (netip.Addr, error) {
	if ip, ok, err := literalIPv4(host); ok {
		if err != nil {
			return netip.Addr{}, fmt.Errorf("%w: %w", ErrResolve, err)
		}
		return ip, nil
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeA)
	m.RecursionDesired = true

	in, _, err := r.udp.ExchangeContext(ctx, m, r.server)
	if err == nil && in.Truncated {
		in, _, err = r.tcp.ExchangeContext(ctx, m, r.server)
	}
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %s: %w", ErrResolve, host, err)
	}
	if in.Rcode != dns.RcodeSuccess {
		return netip.Addr{}, fmt.Errorf("%w: %s: %s", ErrResolve, host, dns.RcodeToString[in.Rcode])
	}

	for _, rr := range in.Answer {
		a, ok := rr.(*dns.A)
		if !ok {
			continue
		}
		if ip, ok := netip.AddrFromSlice(a.A.To4()); ok {
			return ip, nil
		}
	}
	return netip.Addr{}, fmt.Errorf("%w: %s: no A record", ErrResolve, host)
}
