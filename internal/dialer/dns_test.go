package dialer

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miekg/dns"
)

func startDNSServer(t *testing.T, records map[string]string) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	handler := func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		q := r.Question[0]
		ip, ok := records[q.Name]
		switch {
		case !ok:
			m.SetRcode(r, dns.RcodeNameError)
		case ip == "":
			// NOERROR with no answers, as for an IPv6-only name.
		default:
			m.Answer = append(m.Answer,
				&dns.CNAME{
					Hdr:    dns.RR_Header{Name: q.Name, Rrtype: dns.TypeCNAME, Class: dns.ClassINET, Ttl: 60},
					Target: q.Name,
				},
				&dns.A{
					Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
					A:   net.ParseIP(ip).To4(),
				})
		}
		_ = w.WriteMsg(m)
	}

	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		Handler:           dns.HandlerFunc(handler),
		NotifyStartedFunc: func() { close(started) },
	}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestDNSResolverLookupIPv4(t *testing.T) {
	addr := startDNSServer(t, map[string]string{
		"example.test.": "192.0.2.7",
		"v6only.test.":  "",
	})

	r, err := NewDNSResolver(Config{DNSServer: addr, DialTimeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		host    string
		want    netip.Addr
		wantErr bool
	}{
		{host: "example.test", want: netip.MustParseAddr("192.0.2.7")},
		{host: "example.test.", want: netip.MustParseAddr("192.0.2.7")},
		{host: "203.0.113.9", want: netip.MustParseAddr("203.0.113.9")},
		{host: "v6only.test", wantErr: true},
		{host: "missing.test", wantErr: true},
		{host: "2001:db8::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			ip, err := r.LookupIPv4(ctx, tt.host)
			if tt.wantErr {
				if !errors.Is(err, ErrResolve) {
					t.Fatalf("err=%v want ErrResolve", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if ip != tt.want {
				t.Fatalf("ip=%v want %v", ip, tt.want)
			}
		})
	}
}

func TestDNSResolverUnreachableServer(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := pc.LocalAddr().String()
	_ = pc.Close()

	r, err := NewDNSResolver(Config{DNSServer: addr, DialTimeout: 200 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.LookupIPv4(context.Background(), "example.test"); !errors.Is(err, ErrResolve) {
		t.Fatalf("err=%v want ErrResolve", err)
	}
}

func TestDNSResolverRetriesTruncatedOverTCP(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := pc.LocalAddr().String()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		_ = pc.Close()
		t.Skipf("tcp port %s not free: %v", addr, err)
	}

	var udpQueries, tcpQueries atomic.Int32
	handler := func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		if _, ok := w.LocalAddr().(*net.UDPAddr); ok {
			udpQueries.Add(1)
			m.Truncated = true
			_ = w.WriteMsg(m)
			return
		}
		tcpQueries.Add(1)
		q := r.Question[0]
		m.Answer = append(m.Answer, &dns.A{
			Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
			A:   net.ParseIP("198.51.100.4").To4(),
		})
		_ = w.WriteMsg(m)
	}

	for _, srv := range []*dns.Server{
		{PacketConn: pc, Handler: dns.HandlerFunc(handler)},
		{Listener: ln, Handler: dns.HandlerFunc(handler)},
	} {
		started := make(chan struct{})
		srv.NotifyStartedFunc = func() { close(started) }
		go func() { _ = srv.ActivateAndServe() }()
		<-started
		t.Cleanup(func() { _ = srv.Shutdown() })
	}

	r, err := NewDNSResolver(Config{DNSServer: addr, DialTimeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ip, err := r.LookupIPv4(ctx, "big.test")
	if err != nil {
		t.Fatal(err)
	}
	if want := netip.MustParseAddr("198.51.100.4"); ip != want {
		t.Fatalf("ip=%v want %v", ip, want)
	}
	if udpQueries.Load() != 1 || tcpQueries.Load() != 1 {
		t.Fatalf("udp=%d tcp=%d queries, want 1 each", udpQueries.Load(), tcpQueries.Load())
	}
}
