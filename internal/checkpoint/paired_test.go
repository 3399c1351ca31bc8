package checkpoint

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairedReadsThroughToSlow(t *testing.T) {
	fast := &InMemory{}
	slow := &InMemory{}
	k := ForFile("a.txt", "t1")
	require.NoError(t, slow.Put(k, Value("archived")))

	p, err := NewPaired(fast, slow, filepath.Join(t.TempDir(), "log"))
	require.NoError(t, err)

	v, err := p.Get(k)
	require.NoError(t, err)
	assert.Equal(t, Value("archived"), v)

	v, err = fast.Get(k)
	require.NoError(t, err, "a slow-store hit should repopulate the fast store")
	assert.Equal(t, Value("archived"), v)
}

func TestPairedPutPropagatesToSlow(t *testing.T) {
	fast := &InMemory{}
	slow := &InMemory{}
	p, err := NewPaired(fast, slow, filepath.Join(t.TempDir(), "log"))
	require.NoError(t, err)
	p.retryInterval = time.Millisecond

	k := ForFile("a.txt", "t1")
	require.NoError(t, p.Put(k, Value("hello")))

	require.Eventually(t, func() bool {
		v, err := slow.Get(k)
		return err == nil && string(v) == "hello"
	}, time.Second, time.Millisecond, "value should propagate to the slow store")
}

func TestPairedWithoutLogIsReadOnly(t *testing.T) {
	fast := &InMemory{}
	slow := &InMemory{}
	p, err := NewPaired(fast, slow, "")
	require.NoError(t, err)

	err = p.Put(ForFile("a.txt", "t1"), Value("x"))
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestPairedDeleteRemovesFromBoth(t *testing.T) {
	fast := &InMemory{}
	slow := &InMemory{}
	k := ForFile("a.txt", "t1")
	require.NoError(t, fast.Put(k, Value("x")))
	require.NoError(t, slow.Put(k, Value("x")))

	p, err := NewPaired(fast, slow, filepath.Join(t.TempDir(), "log"))
	require.NoError(t, err)
	require.NoError(t, p.Delete(k))

	_, err = fast.Get(k)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = slow.Get(k)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogSurvivesRestartWithPendingEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log")
	l1, err := newLog(path)
	require.NoError(t, err)
	require.NoError(t, l1.add(ForFile("a.txt", "t1")))
	l1.close()

	l2, err := newLog(path)
	require.NoError(t, err)
	assert.Equal(t, []Key{ForFile("a.txt", "t1")}, l2.pending)
}
