// Package nmclient implements the NS-facing side of the NM port protocol of
// §6.1: short-lived dials to a storage server's control port to create,
// delete, move, lock-check, stat, and push content, plus a client-port READ
// for pulling whole-file content. Used by the name server's dispatcher, the
// replication engine, and the replica recovery synchronizer - anything that
// needs to talk to an SS without owning a session with it.
package nmclient
