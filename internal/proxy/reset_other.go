//go:build !unix

package proxy

import (
	"errors"
	"syscall"
)

// wsaeconnreset is what Windows reports when the remote end resets.
const wsaeconnreset = syscall.Errno(10054)

// IsPeerReset reports whether err means the remote end reset the
// connection.
func IsPeerReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) || errors.Is(err, wsaeconnreset)
}
