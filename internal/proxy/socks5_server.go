package proxy

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/phuslu/log"

	"github.com/die-net/torshim/internal/socks5"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// SOCKS5Server speaks the Tor SOCKS dialect on accepted connections and
// serves them over direct connections.
type SOCKS5Server struct {
	ctx     context.Context
	cfg     Config
	Verbose bool
}

// NewSOCKS5Server returns a server whose sessions live no longer than ctx.
func NewSOCKS5Server(ctx context.Context, cfg Config, verbose bool) *SOCKS5Server {
	if ctx == nil {
		ctx = context.Background()
	}
	return &SOCKS5Server{ctx: ctx, cfg: cfg, Verbose: verbose}
}

// Serve accepts connections on ln until it is closed, starting one session
// per connection. Accept errors other than a closed listener are logged and
// retried with backoff. Serve returns nil once ln is closed.
func (s *SOCKS5Server) Serve(ln net.Listener) error {
	var backoff time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			backoff = min(max(2*backoff, minAcceptBackoff), maxAcceptBackoff)
			log.Error().Err(err).Str("listen_addr", ln.Addr().String()).Dur("retry_in", backoff).Msg("socks5 accept error")

			select {
			case <-s.ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			continue
		}
		backoff = 0

		go s.handle(c)
	}
}

func (s *SOCKS5Server) handle(conn net.Conn) {
	remote := conn.RemoteAddr().String()

	defer func() {
		if r := recover(); r != nil {
			_ = conn.Close()
			log.Error().Str("remote_addr", remote).Interface("panic", r).Msg("socks5 session panic")
		}
	}()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	sess := newSession(ctx, s.cfg, conn)
	err := sess.run()
	s.logSession(sess, remote, err)
}

func (s *SOCKS5Server) logSession(sess *session, remote string, err error) {
	var e *log.Entry
	switch {
	case err == nil:
		e = log.Debug()
	case errors.Is(err, ErrRelayIO):
		e = log.Error()
	case s.Verbose:
		e = log.Warn()
	default:
		e = log.Debug()
	}

	e = e.Str("remote_addr", remote)
	if sess.req != nil {
		e = e.Str("socks_command", socks5.CommandName(sess.req.Command)).Str("socks_host", sess.req.Address).Int("socks_port", int(sess.req.Port))
	}
	if err != nil {
		e.Err(err).Msg("socks5 session failed")
		return
	}
	e.Msg("socks5 session done")
}
