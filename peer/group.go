package peer

import (
	"sort"
	"sync"

	"github.com/opd-ai/wifip2p/limits"
	"github.com/sirupsen/logrus"
)

// Group is the flat member set of a group owned by a single node.
// It is safe for concurrent use.
type Group struct {
	owner   NodeID
	members map[NodeID]struct{}
	mu      sync.RWMutex
}

// NewGroup creates an empty group owned by owner.
func NewGroup(owner NodeID) *Group {
	return &Group{
		owner:   owner,
		members: make(map[NodeID]struct{}),
	}
}

// Owner returns the group owner.
func (g *Group) Owner() NodeID {
	return g.owner
}

// Add adds a client to the group. Adding an existing member is a no-op.
func (g *Group) Add(id NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if id == g.owner {
		return ErrSelfMember
	}
	if _, ok := g.members[id]; ok {
		return nil
	}
	if err := limits.ValidateGroupSize(len(g.members)); err != nil {
		return err
	}
	g.members[id] = struct{}{}

	logrus.WithFields(logrus.Fields{
		"function": "Group.Add",
		"owner":    g.owner,
		"member":   id,
		"size":     len(g.members),
	}).Debug("Client added to group")
	return nil
}

// Remove removes a client and reports whether it was a member.
func (g *Group) Remove(id NodeID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.members[id]; !ok {
		return false
	}
	delete(g.members, id)
	return true
}

// Contains reports whether id is a member.
func (g *Group) Contains(id NodeID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.members[id]
	return ok
}

// Members returns the members in ascending order.
func (g *Group) Members() []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]NodeID, 0, len(g.members))
	for id := range g.members {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Size returns the number of clients.
func (g *Group) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.members)
}
