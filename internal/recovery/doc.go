// Package recovery implements the Replica Recovery Synchronizer of §4.6:
// when a storage server re-registers after a failure, it pulls content for
// every file it is a replica of from a live peer and pushes it back.
package recovery
