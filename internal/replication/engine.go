package replication

import (
	"context"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nicolagi/dirtydocs/internal/nmclient"
	"github.com/nicolagi/dirtydocs/internal/registry"
	"github.com/nicolagi/dirtydocs/internal/trie"
)

// Engine fans out a modified file's bytes to its replicas, per §4.10.
type Engine struct {
	Directory *trie.Trie
	Registry  *registry.Registry
	NM        *nmclient.Client
	// Retries is attempted per-replica pushes beyond the first; the spec
	// requires none but recommends at least one retry.
	Retries int
}

func New(dir *trie.Trie, reg *registry.Registry, nm *nmclient.Client) *Engine {
	return &Engine{Directory: dir, Registry: reg, NM: nm, Retries: 1}
}

// Replicate is triggered by a source SS's NM_FILE_MODIFIED notification: it
// reads current bytes from source once, then pushes to every other replica
// concurrently via an errgroup, per §4.10 step (a)-(c).
func (e *Engine) Replicate(ctx context.Context, name, sourceSSID string) {
	n, ok := e.Directory.Find(name, true)
	if !ok {
		return
	}
	source, ok := e.Registry.Get(sourceSSID)
	if !ok || !source.Active {
		log.WithFields(log.Fields{"name": name, "ss": sourceSSID}).Warn("replication source not active")
		return
	}
	content, err := e.NM.ReadContent(source.ClientAddr, name)
	if err != nil {
		log.WithFields(log.Fields{"name": name, "ss": sourceSSID, "err": err}).Warn("replication read from source failed")
		return
	}

	var g errgroup.Group
	for _, id := range n.Replicas {
		if id == sourceSSID {
			continue
		}
		id := id
		g.Go(func() error {
			e.pushToReplica(id, name, content)
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Engine) pushToReplica(id, name string, content []byte) {
	target, ok := e.Registry.Get(id)
	if !ok || !target.Active {
		return
	}
	var lastErr error
	for attempt := 0; attempt <= e.Retries; attempt++ {
		if err := e.push(target.NMAddr, name, content); err != nil {
			lastErr = err
			continue
		}
		return
	}
	log.WithFields(log.Fields{"name": name, "ss": id, "err": lastErr}).Warn("replication push failed")
}

func (e *Engine) push(nmAddr, name string, content []byte) error {
	_ = e.NM.Delete(nmAddr, name)
	if err := e.NM.Create(nmAddr, name); err != nil {
		return err
	}
	return e.NM.WriteContent(nmAddr, name, content)
}
