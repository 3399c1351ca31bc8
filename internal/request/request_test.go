package request

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCollapsesDuplicatePending(t *testing.T) {
	q := New()
	id1, existing1 := q.Create("d.txt", "bob", "alice", Write)
	assert.False(t, existing1)
	id2, existing2 := q.Create("d.txt", "bob", "alice", Write)
	assert.True(t, existing2)
	assert.Equal(t, id1, id2)
}

func TestCreateDistinctTypeDoesNotCollapse(t *testing.T) {
	q := New()
	id1, _ := q.Create("d.txt", "bob", "alice", Write)
	id2, existing := q.Create("d.txt", "bob", "alice", Read)
	assert.False(t, existing)
	assert.NotEqual(t, id1, id2)
}

func TestApproveWorkflow(t *testing.T) {
	q := New()
	id, _ := q.Create("d.txt", "bob", "alice", Write)

	_, err := q.Approve(id, "bob")
	assert.ErrorIs(t, err, ErrNotOwner)

	r, err := q.Approve(id, "alice")
	require.NoError(t, err)
	assert.Equal(t, Approved, r.Status)

	_, err = q.Approve(id, "alice")
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestDenyUnknownID(t *testing.T) {
	q := New()
	_, err := q.Deny(99, "alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestForReturnsRequesterAndOwnerViews(t *testing.T) {
	q := New()
	q.now = func() time.Time { return time.Unix(0, 0) }
	q.Create("d.txt", "bob", "alice", Write)
	q.Create("e.txt", "carol", "alice", Read)
	q.Create("f.txt", "bob", "dave", Read)

	aliceView := q.For("alice")
	assert.Len(t, aliceView, 2)

	bobView := q.For("bob")
	assert.Len(t, bobView, 2)

	daveView := q.For("dave")
	assert.Len(t, daveView, 1)
}
