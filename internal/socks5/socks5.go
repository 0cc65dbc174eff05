package socks5

import (
	"errors"
	"net"
	"slices"
	"strconv"
)

// Version is the only protocol version accepted in greetings and requests.
const Version byte = 0x05

// Authentication methods.
const (
	MethodNone         byte = 0x00
	MethodUserPass     byte = 0x02
	MethodNoAcceptable byte = 0xff
)

// AuthVersion is the username/password sub-negotiation version (RFC 1929).
const AuthVersion byte = 0x01

// Auth reply statuses.
const (
	AuthSuccess byte = 0x00
	AuthFailure byte = 0x01
)

// Commands. CmdResolve is Tor's name lookup extension.
const (
	CmdConnect byte = 0x01
	CmdResolve byte = 0xf0
)

// Address types.
const (
	ATYPIPv4   byte = 0x01
	ATYPDomain byte = 0x03
	ATYPIPv6   byte = 0x04
)

// Reply codes.
const (
	RepSuccess                 byte = 0x00
	RepGeneralFailure          byte = 0x01
	RepHostUnreachable         byte = 0x04
	RepCommandNotSupported     byte = 0x07
	RepAddressTypeNotSupported byte = 0x08
)

var (
	// ErrMalformedMessage reports a message that ended early or could not
	// be parsed. It is usually joined with the underlying read error.
	ErrMalformedMessage = errors.New("socks5: malformed message")

	// ErrUnsupportedCommand reports a request whose command is neither
	// CONNECT nor RESOLVE.
	ErrUnsupportedCommand = errors.New("socks5: command not supported")

	// ErrUnsupportedAddressType reports a request with an unknown ATYP.
	ErrUnsupportedAddressType = errors.New("socks5: address type not supported")

	// ErrNoAcceptableMethods reports a greeting that offers neither no-auth
	// nor username/password.
	ErrNoAcceptableMethods = errors.New("socks5: no acceptable authentication methods")
)

// Handshake is the client greeting.
type Handshake struct {
	Version byte
	Methods []byte
}

// Supports reports whether the client offered method.
func (h *Handshake) Supports(method byte) bool {
	return slices.Contains(h.Methods, method)
}

// AuthRequest is the username/password sub-negotiation request. The
// credentials are opaque bytes.
type AuthRequest struct {
	Version  byte
	Username []byte
	Password []byte
}

// Request is a CONNECT or RESOLVE request.
//
// Address is the dotted IPv4 form, the canonical IPv6 form, or the domain
// name exactly as sent. Port is always present on the wire, even for
// RESOLVE, which ignores it.
type Request struct {
	Version     byte
	Command     byte
	AddressType byte
	Address     string
	Port        uint16
}

// HostPort returns the request destination as host:port.
func (r *Request) HostPort() string {
	return net.JoinHostPort(r.Address, strconv.Itoa(int(r.Port)))
}

// CommandName returns a short label for logging.
func CommandName(cmd byte) string {
	switch cmd {
	case CmdConnect:
		return "connect"
	case CmdResolve:
		return "resolve"
	default:
		return "0x" + strconv.FormatUint(uint64(cmd), 16)
	}
}
