package registry

import (
	"fmt"
	"sync"
	"time"
)

// SS is what the name server knows about one storage server.
type SS struct {
	ID            string
	ClientAddr    string
	NMAddr        string
	Active        bool
	LastHeartbeat time.Time
}

func (s SS) clone() *SS { return &s }

// Registry is the SS Registry of §3: a table of known storage servers with
// liveness state, plus the round-robin counter CREATE/CREATEFOLDER use to
// pick a primary.
type Registry struct {
	mu      sync.Mutex
	servers map[string]*SS
	order   []string // registration order, for stable round robin
	rr      int
	maxSS   int
	now     func() time.Time
}

func New(maxSS int) *Registry {
	return &Registry{
		servers: make(map[string]*SS),
		maxSS:   maxSS,
		now:     time.Now,
	}
}

// Register records a new SS, or reactivates a known one (the recovery path
// of §4.6). It reports wasKnown so the caller can choose between ACK_REG
// and ACK_REG_RECOVERY.
func (r *Registry) Register(id, clientAddr, nmAddr string) (wasKnown bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.servers[id]; ok {
		s.ClientAddr, s.NMAddr = clientAddr, nmAddr
		s.Active = true
		s.LastHeartbeat = r.now()
		return true, nil
	}
	if len(r.servers) >= r.maxSS {
		return false, fmt.Errorf("registry: max storage servers (%d) reached", r.maxSS)
	}
	r.servers[id] = &SS{ID: id, ClientAddr: clientAddr, NMAddr: nmAddr, Active: true, LastHeartbeat: r.now()}
	r.order = append(r.order, id)
	return false, nil
}

// Heartbeat marks id as having been heard from just now. It reports
// whether id transitioned from inactive to active, so the caller can log
// the "online again" event of §4.5.
func (r *Registry) Heartbeat(id string) (reactivated bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.servers[id]
	if !ok {
		return false, fmt.Errorf("registry: unknown storage server %q", id)
	}
	wasActive := s.Active
	s.Active = true
	s.LastHeartbeat = r.now()
	return !wasActive, nil
}

// DeactivateStale marks every SS whose last heartbeat is older than
// timeout as inactive, and returns the ids that changed state. Called by
// the Monitor on every tick.
func (r *Registry) DeactivateStale(timeout time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var changed []string
	cutoff := r.now().Add(-timeout)
	for _, s := range r.servers {
		if s.Active && s.LastHeartbeat.Before(cutoff) {
			s.Active = false
			changed = append(changed, s.ID)
		}
	}
	return changed
}

// Get returns a copy of the SS record for id.
func (r *Registry) Get(id string) (*SS, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.servers[id]
	if !ok {
		return nil, false
	}
	return s.clone(), true
}

// IsActive reports whether id is known and currently active.
func (r *Registry) IsActive(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.servers[id]
	return ok && s.Active
}

// The registry has no way to mark an SS inactive outside the heartbeat
// monitor (DeactivateStale): a failed connect does not flip is_active, and
// callers treat the id as unreachable for that request only by skipping it.

// Active returns the ids of every currently active SS, in registration
// order (stable for round robin).
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, id := range r.order {
		if s := r.servers[id]; s.Active {
			out = append(out, id)
		}
	}
	return out
}

// ChooseReplicas picks a primary (round robin over active SS) and up to
// replicationFactor-1 other active SS as replicas, per §4.1's "replica list
// is chosen at creation". It degrades silently to however many active SS
// exist, per the Open Question in §9.
func (r *Registry) ChooseReplicas(replicationFactor int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var active []string
	for _, id := range r.order {
		if s := r.servers[id]; s.Active {
			active = append(active, id)
		}
	}
	if len(active) == 0 {
		return nil, fmt.Errorf("registry: no active storage servers")
	}
	primaryIdx := r.rr % len(active)
	r.rr++
	replicas := []string{active[primaryIdx]}
	for i := 1; i < len(active) && len(replicas) < replicationFactor; i++ {
		replicas = append(replicas, active[(primaryIdx+i)%len(active)])
	}
	return replicas, nil
}

// All returns a copy of every known SS record, active or not.
func (r *Registry) All() []*SS {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*SS, 0, len(r.servers))
	for _, id := range r.order {
		out = append(out, r.servers[id].clone())
	}
	return out
}
