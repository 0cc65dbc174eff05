package dialer

import (
	"net"
	"time"
)

type Config struct {
	// DialTimeout bounds each TCP connect and each name lookup. Zero
	// means no timeout.
	DialTimeout time.Duration

	KeepAlive net.KeepAliveConfig

	// DNSServer is host[:port] of a DNS server to query for A records.
	// Empty means the system resolver.
	DNSServer string
}
