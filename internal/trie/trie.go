package trie

import (
	"strings"
	"sync"
	"time"
)

// Trie is the name server's directory: it resolves names to nodes, tracks
// ACLs and replica sets, and persists itself to a binary snapshot. All
// exported methods are safe for concurrent use. Every *Node a method
// returns is a clone, so later mutations of the directory do not show
// through it, and changing it does not change the directory.
type Trie struct {
	mu    sync.RWMutex
	nodes map[string]*Node

	path string
	now  func() int64
}

// New creates an empty, in-memory directory. Call Load to populate it from
// a snapshot file, or Save to persist mutations as they happen.
func New(snapshotPath string) *Trie {
	return &Trie{
		nodes: make(map[string]*Node),
		path:  snapshotPath,
		now:   func() int64 { return time.Now().Unix() },
	}
}

// Find resolves name to its node. Trashed nodes are only returned when
// includeTrashed is true (callers such as VIEWTRASH/RESTORE/owner-scoped
// reads pass true; normal listing and lookup pass false).
func (t *Trie) Find(name string, includeTrashed bool) (*Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.find(name)
	if !ok {
		return nil, false
	}
	if n.IsInTrash && !includeTrashed {
		return nil, false
	}
	return n.clone(), true
}

func (t *Trie) find(name string) (*Node, bool) {
	n, ok := t.nodes[name]
	if !ok || n.deleted {
		return nil, false
	}
	return n, true
}

// InsertFile adds a new terminal file node. Fails with ErrExists if name
// already resolves (including to a trashed file: a caller must restore or
// purge before reusing the name, per the CREATE precondition in §4.4).
func (t *Trie) InsertFile(name, owner string, replicas []string) (*Node, error) {
	return t.insert(name, owner, replicas, false)
}

// InsertFolder is analogous to InsertFile for a folder terminal.
func (t *Trie) InsertFolder(name, owner string, replicas []string) (*Node, error) {
	return t.insert(name, owner, replicas, true)
}

func (t *Trie) insert(name, owner string, replicas []string, isFolder bool) (*Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.nodes[name]; ok && !existing.deleted {
		return nil, errorf("insert", "%q: %w", name, ErrExists)
	}
	n := newNode(name, owner, replicas, isFolder, t.now())
	t.nodes[name] = n
	return n.clone(), nil
}

// MarkTrash sets or clears the trash flag for name, owned by user. Folders
// can never enter trash (§3 invariant is_folder => !is_in_trash).
func (t *Trie) MarkTrash(name, user string, flag bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.find(name)
	if !ok {
		return errorf("MarkTrash", "%q: %w", name, ErrNotFound)
	}
	if n.Owner != user {
		return errorf("MarkTrash", "%q: %w", name, ErrNotAuthorized)
	}
	if n.IsFolder {
		return errorf("MarkTrash", "%q: %w", name, ErrIsFolder)
	}
	n.IsInTrash = flag
	n.LastModified = t.now()
	return nil
}

// Delete lazily removes name: the terminal flag is cleared and the node
// becomes unresolvable, but the struct is not freed, matching §4.1's
// documented lazy-delete behavior (the invariant is only that a deleted
// name never resolves again).
func (t *Trie) Delete(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.find(name)
	if !ok {
		return errorf("Delete", "%q: %w", name, ErrNotFound)
	}
	n.deleted = true
	return nil
}

// Move renames src to destFolder/base(src), or to base(src) at the root
// when destFolder is ".". It fails if the destination name already
// resolves, per §4.1.
func (t *Trie) Move(src, destFolder string) (*Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.find(src)
	if !ok {
		return nil, errorf("Move", "%q: %w", src, ErrNotFound)
	}
	base := baseName(src)
	var dest string
	if destFolder == "." || destFolder == "" {
		dest = base
	} else {
		dest = destFolder + "/" + base
	}
	if dest == src {
		return n.clone(), nil
	}
	if existing, ok := t.find(dest); ok && !existing.deleted {
		return nil, errorf("Move", "%q: %w", dest, ErrNotEmpty)
	}
	moved := n.clone()
	moved.Name = dest
	moved.LastModified = t.now()
	moved.deleted = false
	n.deleted = true
	t.nodes[dest] = moved
	return moved.clone(), nil
}

// AddAccess grants read or write access to user, subject to the ACL
// capacity given by maxUsers.
func (t *Trie) AddAccess(name, user string, write bool, maxUsers int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.find(name)
	if !ok {
		return errorf("AddAccess", "%q: %w", name, ErrNotFound)
	}
	if user == n.Owner {
		return errorf("AddAccess", "%q: already owner", user)
	}
	if n.ReadUsers[user] || n.WriteUsers[user] {
		if write == n.WriteUsers[user] {
			return errorf("AddAccess", "%q: already has access", user)
		}
	}
	if len(n.ReadUsers)+len(n.WriteUsers) >= maxUsers && !n.ReadUsers[user] && !n.WriteUsers[user] {
		return errorf("AddAccess", "%q: %w", name, ErrACLFull)
	}
	if write {
		delete(n.ReadUsers, user)
		n.WriteUsers[user] = true
	} else {
		delete(n.WriteUsers, user)
		n.ReadUsers[user] = true
	}
	return nil
}

// RemAccess removes user from whichever ACL set currently grants them
// access, write set first per §4.4.
func (t *Trie) RemAccess(name, user string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.find(name)
	if !ok {
		return errorf("RemAccess", "%q: %w", name, ErrNotFound)
	}
	if n.WriteUsers[user] {
		delete(n.WriteUsers, user)
		return nil
	}
	if n.ReadUsers[user] {
		delete(n.ReadUsers, user)
		return nil
	}
	return errorf("RemAccess", "%q: not in acl", user)
}

// UpdateStats records the last-reported size/word/char counts from the
// primary SS, and bumps last_modified/last_access.
func (t *Trie) UpdateStats(name string, size, words, chars int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.find(name)
	if !ok {
		return errorf("UpdateStats", "%q: %w", name, ErrNotFound)
	}
	n.Size, n.WordCount, n.CharCount = size, words, chars
	n.LastModified = t.now()
	n.LastAccess = t.now()
	return nil
}

// Touch updates last_access only, for reads that don't modify content.
func (t *Trie) Touch(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.find(name); ok {
		n.LastAccess = t.now()
	}
}

// List returns clones of every node visible to user: owned, or granted
// read/write, skipping trashed entries - unless includeAll is set, in
// which case every non-trashed node is returned regardless of ACL (VIEW
// -a, §4.4).
func (t *Trie) List(user string, includeAll bool) []*Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*Node
	for _, n := range t.nodes {
		if n.deleted || n.IsInTrash {
			continue
		}
		if includeAll || n.PermRead(user) {
			out = append(out, n.clone())
		}
	}
	return out
}

// ListTrash returns the caller's own trashed files.
func (t *Trie) ListTrash(user string) []*Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*Node
	for _, n := range t.nodes {
		if n.deleted || !n.IsInTrash {
			continue
		}
		if n.Owner == user {
			out = append(out, n.clone())
		}
	}
	return out
}

// ListFolder returns children of folder visible to user: names of the form
// folder/<base> with no further slash, per the flat folder model of §4.1.
func (t *Trie) ListFolder(folder, user string) []*Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	prefix := folder + "/"
	var out []*Node
	for name, n := range t.nodes {
		if n.deleted || n.IsInTrash {
			continue
		}
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if strings.Contains(name[len(prefix):], "/") {
			continue
		}
		if n.PermRead(user) {
			out = append(out, n.clone())
		}
	}
	return out
}

// EmptyTrash deletes every trashed file owned by user and returns clones
// of the removed nodes, per EMPTYTRASH in §4.4. The caller is responsible for instructing
// storage servers to delete bytes before calling this (it only mutates
// directory state).
func (t *Trie) EmptyTrash(user string) []*Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	var removed []*Node
	for _, n := range t.nodes {
		if n.deleted || !n.IsInTrash || n.Owner != user {
			continue
		}
		removed = append(removed, n.clone())
		n.deleted = true
	}
	return removed
}
