package recovery

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/nicolagi/dirtydocs/internal/nmclient"
	"github.com/nicolagi/dirtydocs/internal/registry"
	"github.com/nicolagi/dirtydocs/internal/trie"
)

// Synchronizer re-populates a returning storage server's files, per §4.6.
type Synchronizer struct {
	Directory *trie.Trie
	Registry  *registry.Registry
	NM        *nmclient.Client
}

func New(dir *trie.Trie, reg *registry.Registry, nm *nmclient.Client) *Synchronizer {
	return &Synchronizer{Directory: dir, Registry: reg, NM: nm}
}

// Recover enumerates every non-trashed node whose replica list contains
// ssID and re-pushes content from any active peer that also holds it. A
// file with no active peer is skipped with a warning, per §4.6.
func (s *Synchronizer) Recover(ctx context.Context, ssID string) {
	target, ok := s.Registry.Get(ssID)
	if !ok {
		return
	}
	for _, n := range s.Directory.List("", true) {
		if n.IsFolder || !containsID(n.Replicas, ssID) {
			continue
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.recoverFile(n, ssID, target.NMAddr)
	}
}

func (s *Synchronizer) recoverFile(n *trie.Node, ssID, targetNMAddr string) {
	peer := s.findActivePeer(n.Replicas, ssID)
	if peer == nil {
		log.WithFields(log.Fields{"name": n.Name, "ss": ssID}).Warn("no active peer to recover from")
		return
	}
	content, err := s.NM.ReadContent(peer.ClientAddr, n.Name)
	if err != nil {
		log.WithFields(log.Fields{"name": n.Name, "peer": peer.ID, "err": err}).Warn("recovery read failed")
		return
	}
	_ = s.NM.Delete(targetNMAddr, n.Name)
	if err := s.NM.Create(targetNMAddr, n.Name); err != nil {
		log.WithFields(log.Fields{"name": n.Name, "ss": ssID, "err": err}).Warn("recovery recreate failed")
		return
	}
	if err := s.NM.WriteContent(targetNMAddr, n.Name, content); err != nil {
		log.WithFields(log.Fields{"name": n.Name, "ss": ssID, "err": err}).Warn("recovery content push failed")
		return
	}
	log.WithFields(log.Fields{"name": n.Name, "ss": ssID, "peer": peer.ID}).Info("recovered file")
}

func (s *Synchronizer) findActivePeer(replicas []string, exclude string) *registry.SS {
	for _, id := range replicas {
		if id == exclude {
			continue
		}
		if ss, ok := s.Registry.Get(id); ok && ss.Active {
			return ss
		}
	}
	return nil
}

func containsID(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
