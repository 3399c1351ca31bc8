package trie

// Node is a terminal entry of the directory: a file or a folder. See §3.
type Node struct {
	Name  string
	Owner string

	// Replicas is ordered; index 0 is the primary storage server for
	// lookup, the rest are replicas. Non-empty, length <= MAX_SS.
	Replicas []string

	// ReadUsers and WriteUsers never contain Owner: ownership implies
	// write access and is never surfaced in listings, per the invariant
	// in §3.
	ReadUsers  map[string]bool
	WriteUsers map[string]bool

	Size, WordCount, CharCount int64

	CreationTime, LastModified, LastAccess int64

	IsFolder  bool
	IsInTrash bool

	// deleted marks a lazily-removed terminal: the name never resolves
	// again, but the struct stays allocated. See package doc.
	deleted bool
}

func newNode(name, owner string, replicas []string, isFolder bool, now int64) *Node {
	return &Node{
		Name:         name,
		Owner:        owner,
		Replicas:     append([]string(nil), replicas...),
		ReadUsers:    make(map[string]bool),
		WriteUsers:   make(map[string]bool),
		CreationTime: now,
		LastModified: now,
		LastAccess:   now,
		IsFolder:     isFolder,
	}
}

// clone returns a deep copy, used so callers never mutate directory state
// without going through the locked Trie methods.
func (n *Node) clone() *Node {
	c := *n
	c.Replicas = append([]string(nil), n.Replicas...)
	c.ReadUsers = make(map[string]bool, len(n.ReadUsers))
	for u := range n.ReadUsers {
		c.ReadUsers[u] = true
	}
	c.WriteUsers = make(map[string]bool, len(n.WriteUsers))
	for u := range n.WriteUsers {
		c.WriteUsers[u] = true
	}
	return &c
}

// PermRead reports whether user can read the node: owner, explicit read
// access, or explicit write access (write implies read).
func (n *Node) PermRead(user string) bool {
	return user == n.Owner || n.ReadUsers[user] || n.WriteUsers[user]
}

// PermWrite reports whether user can write the node: owner or explicit
// write access.
func (n *Node) PermWrite(user string) bool {
	return user == n.Owner || n.WriteUsers[user]
}

// Primary returns the lookup-primary storage server id.
func (n *Node) Primary() string {
	if len(n.Replicas) == 0 {
		return ""
	}
	return n.Replicas[0]
}

func baseName(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' {
			return name[i+1:]
		}
	}
	return name
}
