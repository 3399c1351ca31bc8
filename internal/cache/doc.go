// Package cache implements the name server's lookup cache of §4.2: a
// fixed-capacity, open-addressed table mapping filename -> storage server
// id, sitting in front of the authoritative trie. It never replaces a
// permission check; it only saves a trie walk on the hot path.
package cache
