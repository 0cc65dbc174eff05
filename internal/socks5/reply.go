package socks5

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net/netip"

	txsocks5 "github.com/txthinking/socks5"
)

// EncodeHandshakeReply returns VER METHOD.
func EncodeHandshakeReply(method byte) []byte {
	var buf bytes.Buffer
	_, _ = txsocks5.NewNegotiationReply(method).WriteTo(&buf)
	return buf.Bytes()
}

// WriteHandshakeReply writes the method selection reply to w.
func WriteHandshakeReply(w io.Writer, method byte) error {
	if _, err := w.Write(EncodeHandshakeReply(method)); err != nil {
		return fmt.Errorf("write handshake reply: %w", err)
	}
	return nil
}

// EncodeAuthReply returns VER STATUS for the username/password exchange.
func EncodeAuthReply(success bool) []byte {
	status := AuthFailure
	if success {
		status = AuthSuccess
	}
	var buf bytes.Buffer
	_, _ = txsocks5.NewUserPassNegotiationReply(status).WriteTo(&buf)
	return buf.Bytes()
}

// WriteAuthReply writes the username/password reply to w.
func WriteAuthReply(w io.Writer, success bool) error {
	if _, err := w.Write(EncodeAuthReply(success)); err != nil {
		return fmt.Errorf("write auth reply: %w", err)
	}
	return nil
}

// EncodeReply returns VER REP RSV ATYP BND.ADDR BND.PORT with an IPv4
// bound address. Anything other than an IPv4 addr is encoded as 0.0.0.0.
func EncodeReply(rep byte, addr netip.Addr, port uint16) []byte {
	if addr.Is4In6() {
		addr = addr.Unmap()
	}
	if !addr.Is4() {
		addr = netip.IPv4Unspecified()
	}
	a4 := addr.As4()

	var buf bytes.Buffer
	_, _ = txsocks5.NewReply(rep, ATYPIPv4, a4[:], binary.BigEndian.AppendUint16(nil, port)).WriteTo(&buf)
	return buf.Bytes()
}

// WriteReply writes a request reply to w.
func WriteReply(w io.Writer, rep byte, addr netip.Addr, port uint16) error {
	if _, err := w.Write(EncodeReply(rep, addr, port)); err != nil {
		return fmt.Errorf("write reply 0x%02x: %w", rep, err)
	}
	return nil
}

// WriteZeroReply writes a reply whose bound address and port are zero.
func WriteZeroReply(w io.Writer, rep byte) error {
	return WriteReply(w, rep, netip.IPv4Unspecified(), 0)
}

// Encode returns the wire form of r, the inverse of ReadRequest.
func (r *Request) Encode() ([]byte, error) {
	addr, err := r.addrBytes()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	port := binary.BigEndian.AppendUint16(nil, r.Port)
	if _, err := txsocks5.NewRequest(r.Command, r.AddressType, addr, port).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Request) addrBytes() ([]byte, error) {
	switch r.AddressType {
	case ATYPIPv4:
		ip, err := netip.ParseAddr(r.Address)
		if err != nil || !ip.Is4() {
			return nil, fmt.Errorf("encode request: %q is not an ipv4 address", r.Address)
		}
		a := ip.As4()
		return a[:], nil
	case ATYPIPv6:
		ip, err := netip.ParseAddr(r.Address)
		if err != nil || !ip.Is6() {
			return nil, fmt.Errorf("encode request: %q is not an ipv6 address", r.Address)
		}
		a := ip.As16()
		return a[:], nil
	case ATYPDomain:
		if len(r.Address) > 255 {
			return nil, fmt.Errorf("encode request: domain too long (%d bytes)", len(r.Address))
		}
		return []byte(r.Address), nil
	default:
		return nil, fmt.Errorf("encode request: %w: 0x%02x", ErrUnsupportedAddressType, r.AddressType)
	}
}
