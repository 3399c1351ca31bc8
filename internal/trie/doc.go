// Package trie implements the name server's file/folder directory: name
// resolution, ACLs, replica sets, and the binary snapshot format of §4.1.
//
// The original implementation keys a 128-way array per node (one slot per
// ASCII byte) to walk names byte by byte. Names here are flat (at most one
// "folder/base" segment, per §9's note that deeper nesting is out of
// scope), so a hash map keyed by the full name gives identical lookup
// semantics - same terminal-node-per-name behavior, same lazy delete (a
// removed name's node stays allocated with its deleted bit set and never
// resolves again) - without reimplementing a byte-trie only to store flat
// keys in it.
package trie
