// Package dialer provides the outbound side of the shim: a direct TCP
// dialer for CONNECT and IPv4 resolvers for RESOLVE.
//
// Nothing here goes through an overlay network. Connections are made with
// net.Dialer and names are looked up either through the system resolver or
// by querying a configured DNS server with github.com/miekg/dns.
package dialer
