package proxy

import (
	"errors"
	"fmt"
	"io"
)

// ErrRelayIO marks an unexpected I/O failure while forwarding. It ends the
// session it happened in and nothing else.
var ErrRelayIO = errors.New("relay i/o error")

// relayError classifies the result of one relay direction. Clean end of
// stream, a peer reset, and our own close map to nil.
func relayError(direction string, err error) error {
	switch {
	case err == nil, errors.Is(err, io.EOF), isClosedByUs(err), IsPeerReset(err):
		return nil
	default:
		return fmt.Errorf("%w: %s: %w", ErrRelayIO, direction, err)
	}
}
