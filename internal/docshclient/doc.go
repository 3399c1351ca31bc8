// Package docshclient implements the client side of the wire protocol for
// the docsh CLI: registering with the name server, sending command lines,
// and following the bulk-I/O redirects described in §4.4/§6.1.
package docshclient
