package socks5

import (
	"encoding/binary"
	"fmt"
	"io"
	"net/netip"
)

// ReadHandshake reads the client greeting: VER NMETHODS METHODS.
func ReadHandshake(r io.Reader) (*Handshake, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: read greeting: %w", ErrMalformedMessage, err)
	}
	if hdr[0] != Version {
		return nil, fmt.Errorf("%w: greeting version %d", ErrMalformedMessage, hdr[0])
	}

	methods := make([]byte, int(hdr[1]))
	if _, err := io.ReadFull(r, methods); err != nil {
		return nil, fmt.Errorf("%w: read methods: %w", ErrMalformedMessage, err)
	}

	return &Handshake{Version: hdr[0], Methods: methods}, nil
}

// ReadAuth reads a username/password request: VER ULEN UNAME PLEN PASSWD.
//
// The version byte is returned as sent and not checked, and empty
// credentials are accepted.
func ReadAuth(r io.Reader) (*AuthRequest, error) {
	var ver [1]byte
	if _, err := io.ReadFull(r, ver[:]); err != nil {
		return nil, fmt.Errorf("%w: read auth version: %w", ErrMalformedMessage, err)
	}

	user, err := readLengthPrefixed(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read username: %w", ErrMalformedMessage, err)
	}
	pass, err := readLengthPrefixed(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read password: %w", ErrMalformedMessage, err)
	}

	return &AuthRequest{Version: ver[0], Username: user, Password: pass}, nil
}

// ReadRequest reads VER CMD RSV ATYP DST.ADDR DST.PORT.
//
// Like ReadAuth, the version byte is kept as sent. The command is checked
// before the address is read. For an unsupported command or address type
// the partially decoded request is returned along with
// ErrUnsupportedCommand or ErrUnsupportedAddressType so the caller can
// still answer with the right reply code; the rest of the message is left
// unread.
func ReadRequest(r io.Reader) (*Request, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: read request header: %w", ErrMalformedMessage, err)
	}

	req := &Request{Version: hdr[0], Command: hdr[1], AddressType: hdr[3]}

	if req.Command != CmdConnect && req.Command != CmdResolve {
		return req, fmt.Errorf("%w: %s", ErrUnsupportedCommand, CommandName(req.Command))
	}

	addr, err := readAddr(r, req.AddressType)
	if err != nil {
		return req, err
	}
	req.Address = addr

	var port [2]byte
	if _, err := io.ReadFull(r, port[:]); err != nil {
		return req, fmt.Errorf("%w: read port: %w", ErrMalformedMessage, err)
	}
	req.Port = binary.BigEndian.Uint16(port[:])

	return req, nil
}

func readAddr(r io.Reader, atyp byte) (string, error) {
	switch atyp {
	case ATYPIPv4:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return "", fmt.Errorf("%w: read ipv4 address: %w", ErrMalformedMessage, err)
		}
		return netip.AddrFrom4(b).String(), nil
	case ATYPDomain:
		b, err := readLengthPrefixed(r)
		if err != nil {
			return "", fmt.Errorf("%w: read domain: %w", ErrMalformedMessage, err)
		}
		return string(b), nil
	case ATYPIPv6:
		var b [16]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return "", fmt.Errorf("%w: read ipv6 address: %w", ErrMalformedMessage, err)
		}
		return netip.AddrFrom16(b).String(), nil
	default:
		return "", fmt.Errorf("%w: 0x%02x", ErrUnsupportedAddressType, atyp)
	}
}

func readLengthPrefixed(r io.Reader) ([]byte, error) {
	var n [1]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return nil, err
	}
	b := make([]byte, int(n[0]))
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
