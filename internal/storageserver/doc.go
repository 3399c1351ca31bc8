// Package storageserver implements the Storage Server data plane of
// §4.7-§4.9: the per-file byte store, the sentence-level write lock
// table, the undo slot, and the named checkpoint map, exposed over two
// line-protocol listeners (client-facing and NM-facing).
package storageserver
