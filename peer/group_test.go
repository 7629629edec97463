package peer

import (
	"errors"
	"testing"

	"github.com/opd-ai/wifip2p/limits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupMembership(t *testing.T) {
	g := NewGroup(1)

	require.NoError(t, g.Add(3))
	require.NoError(t, g.Add(2))
	require.NoError(t, g.Add(3))

	assert.Equal(t, NodeID(1), g.Owner())
	assert.Equal(t, 2, g.Size())
	assert.Equal(t, []NodeID{2, 3}, g.Members())
	assert.True(t, g.Contains(2))

	assert.True(t, g.Remove(2))
	assert.False(t, g.Remove(2))
	assert.False(t, g.Contains(2))
	assert.Equal(t, []NodeID{3}, g.Members())
}

func TestGroupRejectsOwner(t *testing.T) {
	g := NewGroup(1)
	assert.True(t, errors.Is(g.Add(1), ErrSelfMember))
}

func TestGroupFull(t *testing.T) {
	g := NewGroup(100)
	for i := 0; i < limits.MaxGroupClients; i++ {
		require.NoError(t, g.Add(NodeID(i)))
	}

	err := g.Add(NodeID(limits.MaxGroupClients))
	assert.True(t, errors.Is(err, limits.ErrGroupFull))
	assert.Equal(t, limits.MaxGroupClients, g.Size())
}
