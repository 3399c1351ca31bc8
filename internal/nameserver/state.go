package nameserver

import (
	"time"

	"github.com/nicolagi/dirtydocs/internal/cache"
	"github.com/nicolagi/dirtydocs/internal/nmclient"
	"github.com/nicolagi/dirtydocs/internal/recovery"
	"github.com/nicolagi/dirtydocs/internal/registry"
	"github.com/nicolagi/dirtydocs/internal/replication"
	"github.com/nicolagi/dirtydocs/internal/request"
	"github.com/nicolagi/dirtydocs/internal/session"
	"github.com/nicolagi/dirtydocs/internal/trie"
)

// Limits bundles the policy limits of §6.2 that bound otherwise-unbounded
// growth; crossing one yields an explicit ERR_ rather than silent
// truncation, per the design note in §9.
type Limits struct {
	MaxSS             int
	MaxClients        int
	MaxUsers          int // per-file ACL capacity
	ReplicationFactor int
}

// Server is the ServerState of §9: every piece of NS mutable state,
// threaded explicitly through handlers instead of held in globals.
type Server struct {
	Directory *trie.Trie
	Registry  *registry.Registry
	Sessions  *session.Table
	Requests  *request.Queue
	Cache     *cache.Lookup

	Limits Limits

	nm       *nmclient.Client
	repl     *replication.Engine
	recovery *recovery.Synchronizer
}

// New builds a Server from its component stores. Callers are expected to
// have called Directory.Load() already if resuming from a snapshot.
func New(dir *trie.Trie, reg *registry.Registry, sessions *session.Table, requests *request.Queue, lookup *cache.Lookup, limits Limits) *Server {
	nm := nmclient.New(2 * time.Second)
	return &Server{
		Directory: dir,
		Registry:  reg,
		Sessions:  sessions,
		Requests:  requests,
		Cache:     lookup,
		Limits:    limits,
		nm:        nm,
		repl:      replication.New(dir, reg, nm),
		recovery:  recovery.New(dir, reg, nm),
	}
}
