package socks5

import (
	"errors"
	"fmt"
	"io"
	"net/netip"

	txsocks5 "github.com/txthinking/socks5"
)

// Auth holds the credentials a client offers. An empty Username offers
// only the no-auth method.
type Auth struct {
	Username string
	Password string
}

// ReplyError is returned by the client helpers when the server answers a
// request with a non-success reply code.
type ReplyError struct {
	Code byte
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("socks5: server replied 0x%02x", e.Code)
}

// ClientNegotiate performs the client side of method selection and, when
// the server asks for it, the username/password exchange.
func ClientNegotiate(rw io.ReadWriter, auth Auth) error {
	methods := []byte{MethodNone}
	if auth.Username != "" {
		methods = []byte{MethodUserPass}
	}

	if _, err := txsocks5.NewNegotiationRequest(methods).WriteTo(rw); err != nil {
		return fmt.Errorf("write negotiation: %w", err)
	}

	neg, err := txsocks5.NewNegotiationReplyFrom(rw)
	if err != nil {
		return fmt.Errorf("read negotiation: %w", err)
	}

	switch neg.Method {
	case MethodNone:
		return nil
	case MethodUserPass:
		if _, err := txsocks5.NewUserPassNegotiationRequest([]byte(auth.Username), []byte(auth.Password)).WriteTo(rw); err != nil {
			return fmt.Errorf("write userpass: %w", err)
		}
		rep, err := txsocks5.NewUserPassNegotiationReplyFrom(rw)
		if err != nil {
			return fmt.Errorf("read userpass: %w", err)
		}
		if rep.Status != AuthSuccess {
			return errors.New("socks5: authentication rejected")
		}
		return nil
	case MethodNoAcceptable:
		return ErrNoAcceptableMethods
	default:
		return fmt.Errorf("socks5: unexpected method 0x%02x", neg.Method)
	}
}

// ClientConnect sends a CONNECT request for address (host:port) and waits
// for a success reply.
func ClientConnect(rw io.ReadWriter, address string) error {
	atyp, dstAddr, dstPort, err := txsocks5.ParseAddress(address)
	if err != nil {
		return fmt.Errorf("parse address: %w", err)
	}
	if atyp == ATYPDomain {
		dstAddr = dstAddr[1:]
	}

	if _, err := txsocks5.NewRequest(CmdConnect, atyp, dstAddr, dstPort).WriteTo(rw); err != nil {
		return fmt.Errorf("write request: %w", err)
	}

	rep, err := txsocks5.NewReplyFrom(rw)
	if err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	if rep.Rep != RepSuccess {
		return &ReplyError{Code: rep.Rep}
	}
	return nil
}

// ClientResolve sends a Tor RESOLVE request for host and returns the IPv4
// address from the reply.
func ClientResolve(rw io.ReadWriter, host string) (netip.Addr, error) {
	if len(host) > 255 {
		return netip.Addr{}, fmt.Errorf("resolve %q: name too long", host)
	}
	if _, err := txsocks5.NewRequest(CmdResolve, ATYPDomain, []byte(host), []byte{0x00, 0x00}).WriteTo(rw); err != nil {
		return netip.Addr{}, fmt.Errorf("write resolve: %w", err)
	}

	rep, err := txsocks5.NewReplyFrom(rw)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("read resolve reply: %w", err)
	}
	if rep.Rep != RepSuccess {
		return netip.Addr{}, &ReplyError{Code: rep.Rep}
	}

	ip, ok := netip.AddrFromSlice(rep.BndAddr)
	if !ok {
		return netip.Addr{}, fmt.Errorf("resolve %q: bad bound address %v", host, rep.BndAddr)
	}
	return ip.Unmap(), nil
}
