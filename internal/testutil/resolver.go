package testutil

import (
	"context"
	"fmt"
	"net/netip"
)

// StaticResolver answers LookupIPv4 from a fixed table. Unknown names fail
// with an error wrapping Err.
type StaticResolver struct {
	Hosts map[string]netip.Addr
	Err   error
}

func (r *StaticResolver) LookupIPv4(_ context.Context, host string) (netip.Addr, error) {
	if ip, ok := r.Hosts[host]; ok {
		return ip, nil
	}
	return netip.Addr{}, fmt.Errorf("%w: %s: not found", r.Err, host)
}
