//go:build unix

package proxy

import (
	"errors"

	"golang.org/x/sys/unix"
)

// IsPeerReset reports whether err means the remote end reset the
// connection, either seen on read (ECONNRESET) or on write (EPIPE).
func IsPeerReset(err error) bool {
	return errors.Is(err, unix.ECONNRESET) || errors.Is(err, unix.EPIPE)
}
