package registry

import (
	"context"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterTwiceReportsKnown(t *testing.T) {
	r := New(4)
	wasKnown, err := r.Register("ss0", "127.0.0.1:9000", "127.0.0.1:9001")
	require.NoError(t, err)
	assert.False(t, wasKnown)

	wasKnown, err = r.Register("ss0", "127.0.0.1:9000", "127.0.0.1:9001")
	require.NoError(t, err)
	assert.True(t, wasKnown, "re-registering a known id is the recovery path")
}

func TestMaxSSEnforced(t *testing.T) {
	r := New(1)
	_, err := r.Register("ss0", "a", "b")
	require.NoError(t, err)
	_, err = r.Register("ss1", "a", "b")
	assert.Error(t, err)
}

func TestChooseReplicasRoundRobinAndDegrades(t *testing.T) {
	r := New(4)
	for _, id := range []string{"ss0", "ss1", "ss2"} {
		_, err := r.Register(id, id, id)
		require.NoError(t, err)
	}
	first, err := r.ChooseReplicas(3)
	require.NoError(t, err)
	assert.Equal(t, "ss0", first[0])
	assert.Len(t, first, 3)

	second, err := r.ChooseReplicas(3)
	require.NoError(t, err)
	assert.Equal(t, "ss1", second[0], "round robin advances the primary")

	// Degrade silently when fewer active SS than the replication factor.
	degraded, err := r.ChooseReplicas(10)
	require.NoError(t, err)
	assert.Len(t, degraded, 3)
}

func TestChooseReplicasNoneActive(t *testing.T) {
	r := New(4)
	_, err := r.ChooseReplicas(3)
	assert.Error(t, err)
}

func TestDeactivateStale(t *testing.T) {
	r := New(4)
	clock := time.Now()
	r.now = func() time.Time { return clock }
	_, err := r.Register("ss0", "a", "b")
	require.NoError(t, err)

	clock = clock.Add(20 * time.Second)
	changed := r.DeactivateStale(15 * time.Second)
	assert.Equal(t, []string{"ss0"}, changed)
	assert.False(t, r.IsActive("ss0"))
}

func TestHeartbeatReactivates(t *testing.T) {
	r := New(4)
	clock := time.Now()
	r.now = func() time.Time { return clock }
	_, err := r.Register("ss0", "a", "b")
	require.NoError(t, err)
	r.DeactivateStale(-time.Second) // force inactive regardless of clock

	reactivated, err := r.Heartbeat("ss0")
	require.NoError(t, err)
	assert.True(t, reactivated)
	assert.True(t, r.IsActive("ss0"))
}

func TestMonitorStopsOnCancel(t *testing.T) {
	defer leaktest.Check(t)()
	r := New(4)
	_, err := r.Register("ss0", "a", "b")
	require.NoError(t, err)
	mon := NewMonitor(r, time.Millisecond, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mon.Run(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	<-done
}
