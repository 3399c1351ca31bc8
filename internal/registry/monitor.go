package registry

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Monitor wakes every interval and deactivates any SS whose last
// heartbeat is older than timeout, per §4.5. It runs until ctx is
// cancelled, matching the shutdown-as-cancellation-signal guidance of §9.
type Monitor struct {
	registry *Registry
	interval time.Duration
	timeout  time.Duration
}

func NewMonitor(r *Registry, interval, timeout time.Duration) *Monitor {
	return &Monitor{registry: r, interval: interval, timeout: timeout}
}

// Run blocks until ctx is done. It is meant to be started in its own
// goroutine by the caller.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range m.registry.DeactivateStale(m.timeout) {
				log.WithFields(log.Fields{"op": "failure-monitor", "ss_id": id}).
					Warn("storage server marked inactive: heartbeat timeout")
			}
		}
	}
}
