package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndReconnect(t *testing.T) {
	tb := New(4)
	require.NoError(t, tb.Register("alice", "127.0.0.1:1111"))

	err := tb.Register("alice", "127.0.0.1:2222")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInUse))

	tb.Deactivate("alice")
	require.NoError(t, tb.Register("alice", "127.0.0.1:3333"), "reconnect into inactive slot must succeed")

	sessions := tb.List()
	require.Len(t, sessions, 1)
	assert.Equal(t, "127.0.0.1:3333", sessions[0].RemoteAddr)
	assert.True(t, sessions[0].Active)
}

func TestMaxClientsEnforced(t *testing.T) {
	tb := New(1)
	require.NoError(t, tb.Register("alice", "a"))
	err := tb.Register("bob", "b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFull))
}

func TestDeactivateUnknownIsNoop(t *testing.T) {
	tb := New(4)
	tb.Deactivate("nobody")
	assert.Empty(t, tb.List())
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	tb := New(4)
	require.NoError(t, tb.Register("bob", "b"))
	require.NoError(t, tb.Register("alice", "a"))
	sessions := tb.List()
	require.Len(t, sessions, 2)
	assert.Equal(t, "bob", sessions[0].Username)
	assert.Equal(t, "alice", sessions[1].Username)
}
