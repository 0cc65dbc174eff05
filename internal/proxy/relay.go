package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
)

// relayChunkSize bounds each read, so at most one chunk per direction is
// in flight.
const relayChunkSize = 4096

var relayBuffers = newBufferPool(relayChunkSize)

// Relay copies bytes between client and upstream in both directions until
// either direction stops, then closes both streams so the other direction
// unblocks. It returns once both directions have finished.
//
// End of stream, a peer reset, and reads failing because Relay itself
// closed the stream are normal termination and yield nil. Any other
// failure is returned wrapped in ErrRelayIO. Canceling ctx closes both
// streams.
func Relay(ctx context.Context, client, upstream net.Conn) error {
	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = client.Close()
			_ = upstream.Close()
		})
	}
	defer closeBoth()

	stop := context.AfterFunc(ctx, closeBoth)
	defer stop()

	var g errgroup.Group

	g.Go(recoverPump("client to upstream", func() error {
		defer closeBoth()
		return relayError("client to upstream", pump(upstream, client))
	}))

	g.Go(recoverPump("upstream to client", func() error {
		defer closeBoth()
		return relayError("upstream to client", pump(client, upstream))
	}))

	return g.Wait()
}

// recoverPump turns a panic in one relay direction into an ErrRelayIO
// result. The goroutine is not covered by the session's own recover.
func recoverPump(direction string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %s: panic: %v", ErrRelayIO, direction, r)
			}
		}()
		return fn()
	}
}

// pump copies src to dst one chunk at a time. The writer-only and
// reader-only wrappers keep io.CopyBuffer off the ReaderFrom/WriterTo fast
// paths, which would ignore the chunk buffer.
func pump(dst io.Writer, src io.Reader) error {
	buf := relayBuffers.Get()
	defer relayBuffers.Put(buf)

	_, err := io.CopyBuffer(writerOnly{dst}, readerOnly{src}, *buf)
	return err
}

type readerOnly struct{ io.Reader }

type writerOnly struct{ io.Writer }

// isClosedByUs reports errors from reading or writing a stream after
// Relay's own close.
func isClosedByUs(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
