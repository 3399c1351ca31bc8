package nameserver

import (
	"github.com/nicolagi/dirtydocs/internal/registry"
	"github.com/nicolagi/dirtydocs/internal/trie"
	"github.com/nicolagi/dirtydocs/internal/wire"
	"github.com/nicolagi/dirtydocs/internal/worker"
)

// handleRedirect implements the bulk-I/O verbs of §4.4 (READ, STREAM,
// WRITE, UNDO, CHECKPOINT, REVERT, VIEWCHECKPOINT, LISTCHECKPOINTS): it
// never touches bytes itself, only picks a live replica and tells the
// client where to reconnect. Lookup tries the cache first, then walks the
// replica list in order, per §4.2.
func (s *Server) handleRedirect(task worker.Task, username string, fields []string) {
	if len(fields) < 2 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	verb, name := fields[0], fields[1]

	n, ok := s.Directory.Find(name, false)
	if !ok {
		wire.WriteLine(task.Conn, wire.ErrFileNotFound)
		return
	}
	if verb == wire.VerbWrite {
		if !n.PermWrite(username) {
			wire.WriteLine(task.Conn, wire.ErrWritePermissionDenied)
			return
		}
	} else if !n.PermRead(username) {
		wire.WriteLine(task.Conn, wire.ErrReadPermissionDenied)
		return
	}

	replica := s.pickReplica(n)
	if replica == nil {
		wire.WriteLine(task.Conn, wire.ErrNoSSAvail)
		return
	}
	s.Cache.Put(name, replica.ID)
	s.Directory.Touch(name)
	ip, port := splitHostPort(replica.ClientAddr)
	wire.WriteLine(task.Conn, wire.Redirect(verb, ip, port))
}

// pickReplica tries the lookup cache, then each entry of n's replica list
// in order, returning the first active one. A cache hit pointing at a
// now-inactive SS is invalidated and lookup falls through, per §4.2.
func (s *Server) pickReplica(n *trie.Node) *registry.SS {
	if id, ok := s.Cache.Get(n.Name); ok {
		if ss, ok := s.Registry.Get(id); ok && ss.Active {
			return ss
		}
		s.Cache.Invalidate(n.Name)
	}
	for _, id := range n.Replicas {
		if ss, ok := s.Registry.Get(id); ok && ss.Active {
			return ss
		}
	}
	return nil
}
