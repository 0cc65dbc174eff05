package proxy

import (
	"net"

	"github.com/die-net/torshim/internal/dialer"
)

type Config struct {
	KeepAlive net.KeepAliveConfig

	// Dialer opens upstream connections for CONNECT.
	Dialer dialer.Dialer

	// Resolver answers RESOLVE.
	Resolver dialer.Resolver
}
