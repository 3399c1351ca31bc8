package cache

import (
	"hash/fnv"
	"sync"
	"time"
)

type slot struct {
	filename   string
	ssID       string
	lastAccess time.Time
	valid      bool
}

// Lookup is a fixed-capacity hash-indexed cache of filename -> storage
// server id, with a TTL. Collisions simply overwrite the occupying slot
// (implicit eviction, per §4.2); there is no chaining.
type Lookup struct {
	mu    sync.Mutex
	slots []slot
	ttl   time.Duration
	now   func() time.Time
}

// New creates a cache with the given slot count and TTL.
func New(size int, ttl time.Duration) *Lookup {
	if size <= 0 {
		size = 1
	}
	return &Lookup{
		slots: make([]slot, size),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *Lookup) index(filename string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(filename))
	return int(h.Sum64() % uint64(len(c.slots)))
}

// Get returns the cached SS id for filename, if present, matching, and not
// expired. A hit refreshes last_access.
func (c *Lookup) Get(filename string) (ssID string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(filename)
	s := &c.slots[i]
	if !s.valid || s.filename != filename {
		return "", false
	}
	if c.now().Sub(s.lastAccess) > c.ttl {
		return "", false
	}
	s.lastAccess = c.now()
	return s.ssID, true
}

// Put installs or overwrites the slot for filename.
func (c *Lookup) Put(filename, ssID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(filename)
	c.slots[i] = slot{filename: filename, ssID: ssID, lastAccess: c.now(), valid: true}
}

// Invalidate clears any cached entry for filename. Called on
// CREATE/DELETE/MOVE/RESTORE/TRASH, per §4.2, and whenever a cached SS
// turns out to be inactive.
func (c *Lookup) Invalidate(filename string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(filename)
	s := &c.slots[i]
	if s.valid && s.filename == filename {
		s.valid = false
	}
}
