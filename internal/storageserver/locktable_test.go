package storageserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockThenUnlock(t *testing.T) {
	lt := NewLockTable()
	require.NoError(t, lt.Lock("a.txt", 1, "alice"))
	assert.True(t, lt.HasAnyLock("a.txt"))

	err := lt.Lock("a.txt", 1, "bob")
	assert.ErrorIs(t, err, ErrSentenceLocked)

	lt.Unlock("a.txt", 1)
	assert.False(t, lt.HasAnyLock("a.txt"))
	require.NoError(t, lt.Lock("a.txt", 1, "bob"))
}

func TestDistinctSentencesLockIndependently(t *testing.T) {
	lt := NewLockTable()
	require.NoError(t, lt.Lock("a.txt", 1, "alice"))
	require.NoError(t, lt.Lock("a.txt", 2, "bob"))
	assert.True(t, lt.HasAnyLock("a.txt"))
}

func TestReleaseHolderReleasesAllItsLocksAcrossFiles(t *testing.T) {
	lt := NewLockTable()
	require.NoError(t, lt.Lock("a.txt", 1, "alice"))
	require.NoError(t, lt.Lock("b.txt", 1, "alice"))
	require.NoError(t, lt.Lock("b.txt", 2, "bob"))

	lt.ReleaseHolder("alice")

	assert.False(t, lt.HasAnyLock("a.txt"))
	assert.True(t, lt.HasAnyLock("b.txt"), "bob's lock on b.txt must survive")
}
