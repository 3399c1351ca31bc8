package trie

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTrie(t *testing.T) *Trie {
	t.Helper()
	tr := New(filepath.Join(t.TempDir(), "trie.dat"))
	tr.now = func() int64 { return 1700000000 }
	return tr
}

func TestCreateThenDelete(t *testing.T) {
	tr := newTestTrie(t)
	n, err := tr.InsertFile("a.txt", "alice", []string{"ss0"})
	require.NoError(t, err)
	require.Equal(t, "alice", n.Owner)

	_, found := tr.Find("a.txt", false)
	require.True(t, found)

	require.NoError(t, tr.Delete("a.txt"))
	_, found = tr.Find("a.txt", false)
	require.False(t, found)

	// The name may be reused after a lazy delete.
	_, err = tr.InsertFile("a.txt", "bob", []string{"ss0"})
	require.NoError(t, err)
}

func TestInsertDuplicateRejected(t *testing.T) {
	tr := newTestTrie(t)
	_, err := tr.InsertFile("a.txt", "alice", []string{"ss0"})
	require.NoError(t, err)
	_, err = tr.InsertFile("a.txt", "bob", []string{"ss0"})
	assert.ErrorIs(t, err, ErrExists)
}

func TestTrashRestoreRoundTrip(t *testing.T) {
	tr := newTestTrie(t)
	_, err := tr.InsertFile("b.txt", "alice", []string{"ss0"})
	require.NoError(t, err)
	require.NoError(t, tr.AddAccess("b.txt", "bob", false, 32))
	before, found := tr.Find("b.txt", false)
	require.True(t, found)

	require.NoError(t, tr.MarkTrash("b.txt", "alice", true))
	_, found = tr.Find("b.txt", false)
	require.False(t, found, "trashed files are invisible to normal lookup")
	trashed, found := tr.Find("b.txt", true)
	require.True(t, found)
	require.True(t, trashed.IsInTrash)

	require.NoError(t, tr.MarkTrash("b.txt", "alice", false))
	after, found := tr.Find("b.txt", false)
	require.True(t, found)

	diff := cmp.Diff(before, after,
		cmpopts.IgnoreFields(Node{}, "LastModified", "IsInTrash"),
		cmpopts.IgnoreUnexported(Node{}))
	assert.Empty(t, diff, "TRASH then RESTORE must preserve ACL, timestamps, replicas")
}

func TestTrashRequiresOwner(t *testing.T) {
	tr := newTestTrie(t)
	_, err := tr.InsertFile("c.txt", "alice", []string{"ss0"})
	require.NoError(t, err)
	err = tr.MarkTrash("c.txt", "bob", true)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestFolderCannotBeTrashed(t *testing.T) {
	tr := newTestTrie(t)
	_, err := tr.InsertFolder("docs", "alice", []string{"ss0"})
	require.NoError(t, err)
	err = tr.MarkTrash("docs", "alice", true)
	assert.ErrorIs(t, err, ErrIsFolder)
}

func TestMoveIntoFolderThenToRoot(t *testing.T) {
	tr := newTestTrie(t)
	original, err := tr.InsertFile("report.txt", "alice", []string{"ss0", "ss1"})
	require.NoError(t, err)
	require.NoError(t, tr.AddAccess("report.txt", "bob", true, 32))
	_, err = tr.InsertFolder("archive", "alice", []string{"ss0"})
	require.NoError(t, err)

	moved, err := tr.Move("report.txt", "archive")
	require.NoError(t, err)
	assert.Equal(t, "archive/report.txt", moved.Name)

	_, found := tr.Find("report.txt", false)
	assert.False(t, found)

	back, err := tr.Move("archive/report.txt", ".")
	require.NoError(t, err)
	assert.Equal(t, "report.txt", back.Name)
	assert.ElementsMatch(t, original.Replicas, back.Replicas)
	assert.True(t, back.WriteUsers["bob"])
}

func TestMoveRejectsExistingDestination(t *testing.T) {
	tr := newTestTrie(t)
	_, err := tr.InsertFolder("archive", "alice", []string{"ss0"})
	require.NoError(t, err)
	_, err = tr.InsertFile("report.txt", "alice", []string{"ss0"})
	require.NoError(t, err)
	_, err = tr.InsertFile("archive/report.txt", "alice", []string{"ss0"})
	require.NoError(t, err)

	_, err = tr.Move("report.txt", "archive")
	assert.ErrorIs(t, err, ErrNotEmpty)
}

func TestACLGrantRevoke(t *testing.T) {
	tr := newTestTrie(t)
	_, err := tr.InsertFile("d.txt", "alice", []string{"ss0"})
	require.NoError(t, err)

	n, _ := tr.Find("d.txt", false)
	assert.False(t, n.PermRead("bob"))

	require.NoError(t, tr.AddAccess("d.txt", "bob", false, 32))
	n, _ = tr.Find("d.txt", false)
	assert.True(t, n.PermRead("bob"))
	assert.False(t, n.PermWrite("bob"))

	require.NoError(t, tr.RemAccess("d.txt", "bob"))
	n, _ = tr.Find("d.txt", false)
	assert.False(t, n.PermRead("bob"))
}

func TestACLFull(t *testing.T) {
	tr := newTestTrie(t)
	_, err := tr.InsertFile("e.txt", "alice", []string{"ss0"})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		require.NoError(t, tr.AddAccess("e.txt", string(rune('a'+i)), false, 2))
	}
	err = tr.AddAccess("e.txt", "z", false, 2)
	assert.ErrorIs(t, err, ErrACLFull)
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trie.dat")
	tr := New(path)
	tr.now = func() int64 { return 42 }

	_, err := tr.InsertFile("f.txt", "alice", []string{"ss0", "ss1"})
	require.NoError(t, err)
	require.NoError(t, tr.AddAccess("f.txt", "bob", false, 32))
	require.NoError(t, tr.AddAccess("f.txt", "carol", true, 32))
	_, err = tr.InsertFolder("docs", "alice", []string{"ss0"})
	require.NoError(t, err)
	require.NoError(t, tr.MarkTrash("f.txt", "alice", true))

	require.NoError(t, tr.Save())

	reloaded := New(path)
	require.NoError(t, reloaded.Load())

	want := tr.List("alice", true)
	got := reloaded.List("alice", true)
	assert.ElementsMatch(t, namesOf(want), namesOf(got))

	// Trashed files aren't part of List; check explicitly.
	trashed, found := reloaded.Find("f.txt", true)
	require.True(t, found)
	assert.True(t, trashed.IsInTrash)
	assert.True(t, trashed.WriteUsers["carol"])
	assert.True(t, trashed.ReadUsers["bob"])
	assert.ElementsMatch(t, []string{"ss0", "ss1"}, trashed.Replicas)
}

func TestLoadDiscardsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trie.dat")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0600))
	tr := New(path)
	require.NoError(t, tr.Load())
	assert.Empty(t, tr.List("anyone", true))
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	tr := New(filepath.Join(t.TempDir(), "missing.dat"))
	require.NoError(t, tr.Load())
	assert.Empty(t, tr.List("anyone", true))
}

func namesOf(nodes []*Node) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	return names
}
