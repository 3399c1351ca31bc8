// Package nameserver implements the Name Server control plane of §4.4:
// the command dispatcher that turns client and storage-server connections
// into directory mutations, ACL checks, and SS redirects, threaded
// through one ServerState value rather than globals, per the design note
// in §9.
package nameserver
