package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/die-net/torshim/internal/socks5"
)

type sessionState int

const (
	stateHandshaking sessionState = iota
	stateAuthenticating
	stateAwaitingRequest
	stateResolving
	stateConnecting
	stateRelaying
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateHandshaking:
		return "handshake"
	case stateAuthenticating:
		return "auth"
	case stateAwaitingRequest:
		return "request"
	case stateResolving:
		return "resolve"
	case stateConnecting:
		return "connect"
	case stateRelaying:
		return "relay"
	case stateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// session owns one client connection, and the upstream connection once a
// CONNECT succeeds. Both are closed when run returns.
type session struct {
	ctx      context.Context
	cfg      Config
	conn     net.Conn
	upstream net.Conn
	req      *socks5.Request
	state    sessionState
}

func newSession(ctx context.Context, cfg Config, conn net.Conn) *session {
	return &session{ctx: ctx, cfg: cfg, conn: conn, state: stateHandshaking}
}

// run drives the session to stateClosed. The returned error names the
// state that failed.
func (s *session) run() error {
	defer s.close()

	for s.state != stateClosed {
		next, err := s.step()
		if err != nil {
			return fmt.Errorf("%s: %w", s.state, err)
		}
		s.state = next
	}
	return nil
}

func (s *session) step() (sessionState, error) {
	switch s.state {
	case stateHandshaking:
		return s.handshake()
	case stateAuthenticating:
		return s.authenticate()
	case stateAwaitingRequest:
		return s.readRequest()
	case stateResolving:
		return s.resolve()
	case stateConnecting:
		return s.connect()
	case stateRelaying:
		return stateClosed, Relay(s.ctx, s.conn, s.upstream)
	default:
		return stateClosed, fmt.Errorf("unexpected session state %s", s.state)
	}
}

func (s *session) handshake() (sessionState, error) {
	hs, err := socks5.ReadHandshake(s.conn)
	if err != nil {
		return stateClosed, err
	}

	switch {
	case hs.Supports(socks5.MethodNone):
		return stateAwaitingRequest, socks5.WriteHandshakeReply(s.conn, socks5.MethodNone)
	case hs.Supports(socks5.MethodUserPass):
		return stateAuthenticating, socks5.WriteHandshakeReply(s.conn, socks5.MethodUserPass)
	default:
		if err := socks5.WriteHandshakeReply(s.conn, socks5.MethodNoAcceptable); err != nil {
			return stateClosed, err
		}
		return stateClosed, fmt.Errorf("%w: offered %v", socks5.ErrNoAcceptableMethods, hs.Methods)
	}
}

// authenticate accepts any credentials.
func (s *session) authenticate() (sessionState, error) {
	if _, err := socks5.ReadAuth(s.conn); err != nil {
		return stateClosed, err
	}
	return stateAwaitingRequest, socks5.WriteAuthReply(s.conn, true)
}

func (s *session) readRequest() (sessionState, error) {
	req, err := socks5.ReadRequest(s.conn)
	switch {
	case errors.Is(err, socks5.ErrUnsupportedCommand):
		return stateClosed, errors.Join(err, socks5.WriteZeroReply(s.conn, socks5.RepCommandNotSupported))
	case errors.Is(err, socks5.ErrUnsupportedAddressType):
		return stateClosed, errors.Join(err, socks5.WriteZeroReply(s.conn, socks5.RepAddressTypeNotSupported))
	case err != nil:
		return stateClosed, err
	}

	s.req = req
	if req.Command == socks5.CmdResolve {
		return stateResolving, nil
	}
	return stateConnecting, nil
}

// resolve answers RESOLVE with the first IPv4 address of the name. The
// reply port is always zero and no relay follows.
func (s *session) resolve() (sessionState, error) {
	ip, err := s.cfg.Resolver.LookupIPv4(s.ctx, s.req.Address)
	if err != nil {
		return stateClosed, errors.Join(err, socks5.WriteZeroReply(s.conn, socks5.RepHostUnreachable))
	}
	return stateClosed, socks5.WriteReply(s.conn, socks5.RepSuccess, ip, 0)
}

// connect opens the upstream stream. The success reply always carries a
// zero bound address and port, not the actual local endpoint.
func (s *session) connect() (sessionState, error) {
	up, err := s.cfg.Dialer.DialContext(s.ctx, "tcp", s.req.HostPort())
	if err != nil {
		return stateClosed, errors.Join(err, socks5.WriteZeroReply(s.conn, socks5.RepGeneralFailure))
	}
	s.upstream = up

	if err := socks5.WriteReply(s.conn, socks5.RepSuccess, netip.IPv4Unspecified(), 0); err != nil {
		return stateClosed, err
	}
	return stateRelaying, nil
}

func (s *session) close() {
	_ = s.conn.Close()
	if s.upstream != nil {
		_ = s.upstream.Close()
	}
}
