package nameserver

import (
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/nicolagi/dirtydocs/internal/trie"
	"github.com/nicolagi/dirtydocs/internal/wire"
	"github.com/nicolagi/dirtydocs/internal/worker"
)

// handleCreate implements CREATE, §4.4: choose a primary and replica set,
// have the primary physically create the file, then insert the node. Other
// replicas are created asynchronously; their failure is logged but never
// fails the client's CREATE, per the propagation policy in §6.3.
func (s *Server) handleCreate(task worker.Task, username string, fields []string) {
	if len(fields) != 2 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	name := fields[1]
	s.createFile(task, username, name, false)
}

func (s *Server) handleCreateFolder(task worker.Task, username string, fields []string) {
	if len(fields) != 2 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	name := fields[1]
	s.createFile(task, username, name, true)
}

func (s *Server) createFile(task worker.Task, username, name string, isFolder bool) {
	if _, ok := s.Directory.Find(name, true); ok {
		wire.WriteLine(task.Conn, wire.ErrFileExists)
		return
	}
	replicas, err := s.Registry.ChooseReplicas(s.Limits.ReplicationFactor)
	if err != nil {
		wire.WriteLine(task.Conn, wire.ErrNoSSAvail)
		return
	}
	primary, ok := s.Registry.Get(replicas[0])
	if !ok {
		wire.WriteLine(task.Conn, wire.ErrNoSSAvail)
		return
	}
	createOnSS := s.ssCreate
	failReply := wire.ErrSSCreateFailed
	if isFolder {
		createOnSS = s.ssCreateFolder
		failReply = wire.ErrSSCreateFolderFailed
	}
	if err := createOnSS(primary.NMAddr, name); err != nil {
		wire.WriteLine(task.Conn, failReply)
		return
	}
	var insertErr error
	if isFolder {
		_, insertErr = s.Directory.InsertFolder(name, username, replicas)
	} else {
		_, insertErr = s.Directory.InsertFile(name, username, replicas)
	}
	if insertErr != nil {
		wire.WriteLine(task.Conn, wire.ErrFileExists)
		return
	}
	s.Cache.Invalidate(name)
	s.saveSnapshot()

	for _, id := range replicas[1:] {
		replica, ok := s.Registry.Get(id)
		if !ok {
			continue
		}
		go func(nmAddr string) {
			if err := createOnSS(nmAddr, name); err != nil {
				log.WithFields(log.Fields{"name": name, "ss": nmAddr}).Warn("async replica create failed")
			}
		}(replica.NMAddr)
	}

	log.WithFields(log.Fields{"name": name, "owner": username, "replicas": len(replicas)}).Info("created")
	if isFolder {
		wire.WriteLine(task.Conn, wire.Ack(wire.VerbCreateFolder))
	} else {
		wire.WriteLine(task.Conn, wire.Ack(wire.VerbCreate))
	}
}

func (s *Server) handleTrash(task worker.Task, username string, fields []string) {
	if len(fields) != 2 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	name := fields[1]
	n, ok := s.Directory.Find(name, true)
	if !ok {
		wire.WriteLine(task.Conn, wire.ErrFileNotFound)
		return
	}
	if n.Owner != username {
		wire.WriteLine(task.Conn, wire.ErrPermissionDenied)
		return
	}
	if n.IsFolder {
		wire.WriteLine(task.Conn, wire.ErrCannotDeleteFolder)
		return
	}
	if n.IsInTrash {
		wire.WriteLine(task.Conn, wire.ErrAlreadyInTrash)
		return
	}
	if s.anyReplicaLocked(n) {
		wire.WriteLine(task.Conn, wire.ErrFileLocked)
		return
	}
	if err := s.Directory.MarkTrash(name, username, true); err != nil {
		wire.WriteLine(task.Conn, wire.ErrFileNotFound)
		return
	}
	s.saveSnapshot()
	wire.WriteLine(task.Conn, wire.AckTrashed)
}

func (s *Server) handleRestore(task worker.Task, username string, fields []string) {
	if len(fields) != 2 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	name := fields[1]
	n, ok := s.Directory.Find(name, true)
	if !ok {
		wire.WriteLine(task.Conn, wire.ErrFileNotFound)
		return
	}
	if n.Owner != username {
		wire.WriteLine(task.Conn, wire.ErrPermissionDenied)
		return
	}
	if !n.IsInTrash {
		wire.WriteLine(task.Conn, wire.ErrNotInTrash)
		return
	}
	if err := s.Directory.MarkTrash(name, username, false); err != nil {
		wire.WriteLine(task.Conn, wire.ErrFileNotFound)
		return
	}
	s.saveSnapshot()
	wire.WriteLine(task.Conn, wire.AckRestored)
}

func (s *Server) handleViewTrash(task worker.Task, username string, fields []string) {
	for _, n := range s.Directory.ListTrash(username) {
		wire.WriteLine(task.Conn, n.Name)
	}
}

func (s *Server) handleEmptyTrash(task worker.Task, username string, fields []string) {
	removed := s.Directory.EmptyTrash(username)
	for _, n := range removed {
		s.Cache.Invalidate(n.Name)
		for _, id := range n.Replicas {
			replica, ok := s.Registry.Get(id)
			if !ok || !replica.Active {
				continue
			}
			if err := s.ssDelete(replica.NMAddr, n.Name); err != nil {
				log.WithFields(log.Fields{"name": n.Name, "ss": replica.NMAddr}).Warn("emptytrash delete failed")
			}
		}
	}
	s.saveSnapshot()
	wire.WriteLine(task.Conn, wire.Ack(wire.VerbEmptyTrash, strconv.Itoa(len(removed))))
}

func (s *Server) handleDelete(task worker.Task, username string, fields []string) {
	if len(fields) != 2 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	name := fields[1]
	n, ok := s.Directory.Find(name, true)
	if !ok {
		wire.WriteLine(task.Conn, wire.ErrFileNotFound)
		return
	}
	if n.Owner != username {
		wire.WriteLine(task.Conn, wire.ErrPermissionDenied)
		return
	}
	if n.IsFolder {
		wire.WriteLine(task.Conn, wire.ErrCannotDeleteFolder)
		return
	}
	if s.anyReplicaLocked(n) {
		wire.WriteLine(task.Conn, wire.ErrFileLocked)
		return
	}
	for _, id := range n.Replicas {
		replica, ok := s.Registry.Get(id)
		if !ok || !replica.Active {
			continue
		}
		if err := s.ssDelete(replica.NMAddr, name); err != nil {
			wire.WriteLine(task.Conn, wire.ErrSSDeleteFailed)
			return
		}
	}
	if err := s.Directory.Delete(name); err != nil {
		wire.WriteLine(task.Conn, wire.ErrFileNotFound)
		return
	}
	s.Cache.Invalidate(name)
	s.saveSnapshot()
	wire.WriteLine(task.Conn, wire.Ack(wire.VerbDelete))
}

// anyReplicaLocked asks every active replica whether it holds any sentence
// lock on n; consulted by TRASH and DELETE, per §4.4's lock-table visibility
// note in §6.
func (s *Server) anyReplicaLocked(n *trie.Node) bool {
	for _, id := range n.Replicas {
		replica, ok := s.Registry.Get(id)
		if !ok || !replica.Active {
			continue
		}
		locked, err := s.ssCheckLocks(replica.NMAddr, n.Name)
		if err == nil && locked {
			return true
		}
	}
	return false
}

// handleMove implements MOVE, §4.1/§4.4. It renames src in the trie first,
// then sends NM_MOVE src dest to every active replica of src; no separate
// folder-creation message goes to the storage servers. A replica whose
// rename fails is only logged: the trie is not rolled back and the client
// still gets ACK_MOVE, never ERR_SS_MOVE_FAILED.
func (s *Server) handleMove(task worker.Task, username string, fields []string) {
	if len(fields) != 3 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	src, destFolder := fields[1], fields[2]
	n, ok := s.Directory.Find(src, false)
	if !ok {
		wire.WriteLine(task.Conn, wire.ErrFileNotFound)
		return
	}
	if !n.PermWrite(username) {
		wire.WriteLine(task.Conn, wire.ErrWritePermissionDenied)
		return
	}
	if destFolder != "." {
		folder, ok := s.Directory.Find(destFolder, false)
		if !ok || !folder.IsFolder {
			wire.WriteLine(task.Conn, wire.ErrFileNotFound)
			return
		}
	}
	moved, err := s.Directory.Move(src, destFolder)
	if err != nil {
		wire.WriteLine(task.Conn, wire.ErrFileExists)
		return
	}
	for _, id := range n.Replicas {
		replica, ok := s.Registry.Get(id)
		if !ok || !replica.Active {
			continue
		}
		if err := s.ssMove(replica.NMAddr, src, moved.Name); err != nil {
			log.WithFields(log.Fields{"src": src, "dest": moved.Name, "ss": replica.NMAddr}).Warn("replica move failed")
		}
	}
	s.Cache.Invalidate(src)
	s.Cache.Invalidate(moved.Name)
	s.saveSnapshot()
	wire.WriteLine(task.Conn, wire.Ack(wire.VerbMove))
}

// saveSnapshot persists the directory, logging rather than failing the
// caller on I/O error, per the persistence policy in §4.1/§6.3.
func (s *Server) saveSnapshot() {
	if err := s.Directory.Save(); err != nil {
		log.WithError(err).Warn("directory snapshot save failed")
	}
}
