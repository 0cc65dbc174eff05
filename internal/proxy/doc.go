// Package proxy implements the listener side of the shim.
//
// SOCKS5Server accepts connections and runs one session per connection.
// A session walks the Tor SOCKS dialect (greeting, optional
// username/password, CONNECT or RESOLVE) using internal/socks5 for all
// wire work, then either answers a RESOLVE and closes or hands both
// streams to Relay.
package proxy
