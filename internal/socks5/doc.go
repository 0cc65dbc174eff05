// Package socks5 is the wire codec for the SOCKS5 dialect spoken by the Tor
// SOCKS port.
//
// It decodes the client greeting, the username/password sub-negotiation and
// the request (CONNECT plus Tor's RESOLVE extension), and encodes the
// matching replies. Every decoder reads exactly the bytes of one message
// from the supplied reader and never buffers past it, so callers can hand
// the same stream to a relay once negotiation is done.
//
// Reply encoding is delegated to the message types in
// github.com/txthinking/socks5; decoding is done here because the Tor
// dialect needs the command checked before the address is read.
package socks5
