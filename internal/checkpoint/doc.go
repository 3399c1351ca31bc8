// Package checkpoint implements the Checkpoint Store of §3/§4.9: a
// tag-to-snapshot mapping per file, kept in a fast local store with
// optional asynchronous archival to a slow, durable store, in the manner
// of a write-back cache.
package checkpoint
