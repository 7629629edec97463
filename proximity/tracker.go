package proximity

import (
	"errors"
	"fmt"
	"sort"

	"github.com/opd-ai/wifip2p/event"
	"github.com/opd-ai/wifip2p/interfaces"
	"github.com/opd-ai/wifip2p/peer"
	"github.com/sirupsen/logrus"
)

// ErrMissingCollaborator is returned by New when a required collaborator is nil.
var ErrMissingCollaborator = errors.New("missing collaborator")

// Collaborators are the external components a Tracker calls into.
type Collaborators struct {
	// Neighbors reports in-range peers. Required.
	Neighbors interfaces.NeighborView
	// Sender delivers emitted events. Required.
	Sender interfaces.ChannelSender
	// States resolves evicted members' state. Required.
	States interfaces.StateDirectory
	// Observer receives timeout and eviction notifications. Optional.
	Observer interfaces.Observer
}

// Tracker follows one node's proximity across simulation cycles. It is owned by
// a single node and must not be advanced concurrently.
type Tracker struct {
	config    interfaces.TrackerConfig
	neighbors interfaces.NeighborView
	sender    interfaces.ChannelSender
	states    interfaces.StateDirectory
	observer  interfaces.Observer

	cycle    int64
	previous map[peer.NodeID]struct{}
}

// New creates a tracker with an empty neighbor snapshot.
func New(config interfaces.TrackerConfig, c Collaborators) (*Tracker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch {
	case c.Neighbors == nil:
		return nil, fmt.Errorf("%w: neighbor view", ErrMissingCollaborator)
	case c.Sender == nil:
		return nil, fmt.Errorf("%w: channel sender", ErrMissingCollaborator)
	case c.States == nil:
		return nil, fmt.Errorf("%w: state directory", ErrMissingCollaborator)
	}

	observer := c.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	return &Tracker{
		config:    config,
		neighbors: c.Neighbors,
		sender:    c.Sender,
		states:    c.States,
		observer:  observer,
		previous:  make(map[peer.NodeID]struct{}),
	}, nil
}

// Cycle returns the number of completed Advance calls.
func (t *Tracker) Cycle() int64 {
	return t.cycle
}

// Advance runs one simulation cycle for node. The first call only records the
// neighbor snapshot; later calls notify the listener of proximity changes,
// advertise services to new peers, expire a pending invitation and evict group
// members that left radio range.
//
// A nil state, or an evicted member unknown to the state directory, is an
// integration error and panics.
func (t *Tracker) Advance(node peer.NodeID, state interfaces.NodeState) {
	if state == nil {
		panic(fmt.Sprintf("proximity: nil state for node %d", node))
	}
	defer func() { t.cycle++ }()

	current := toSet(t.neighbors.Neighbors(node))
	if t.cycle == 0 {
		t.previous = current
		logrus.WithFields(logrus.Fields{
			"function":  "Tracker.Advance",
			"node":      node,
			"neighbors": len(current),
		}).Debug("Neighbor snapshot primed")
		return
	}

	left, joined := diffNeighbors(t.previous, current)
	if len(left) > 0 || len(joined) > 0 {
		t.notifyPeersChanged(node, len(left), len(joined))
	}
	t.advertiseServices(node, state, joined)
	t.previous = current

	t.checkInvitation(node, state)
	if state.IsGroupOwner() {
		t.evictDriftedMembers(node, state, current)
	}
}

func (t *Tracker) endpoint(node peer.NodeID) event.Endpoint {
	return event.Endpoint{Node: node, Role: t.config.TrackerRole}
}

func (t *Tracker) notifyPeersChanged(node peer.NodeID, left, joined int) {
	dst := event.Endpoint{Node: node, Role: t.config.ListenerRole}
	t.sender.Send(event.New(event.KindPeersChanged, t.endpoint(node), dst, nil, t.cycle), t.config.PrimaryChannel)

	logrus.WithFields(logrus.Fields{
		"function": "notifyPeersChanged",
		"node":     node,
		"cycle":    t.cycle,
		"left":     left,
		"joined":   joined,
	}).Debug("Peer set changed")
}

// advertiseServices sends every local service to every newly seen peer when
// the radio is on, discovery is running and there is something to advertise.
func (t *Tracker) advertiseServices(node peer.NodeID, state interfaces.NodeState, joined []peer.NodeID) {
	if len(joined) == 0 || !state.IsWifiP2pEnabled() || !state.IsPeerDiscoveryStarted() {
		return
	}
	services := state.Services()
	if len(services) == 0 {
		return
	}

	for _, newPeer := range joined {
		dst := event.Endpoint{Node: newPeer, Role: t.config.ListenerRole}
		for _, svc := range services {
			ev := event.New(event.KindServiceAvailable, t.endpoint(node), dst, svc, t.cycle)
			t.sender.Send(ev, t.config.ServiceChannel)
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":  "advertiseServices",
		"node":      node,
		"cycle":     t.cycle,
		"new_peers": len(joined),
		"services":  len(services),
	}).Debug("Services advertised to new peers")
}

// checkInvitation expires an invitation whose clock already exceeds the
// bound, and otherwise advances the clock. The clock is compared before it is
// incremented.
func (t *Tracker) checkInvitation(node peer.NodeID, state interfaces.NodeState) {
	if state.Status() != peer.StatusInvited {
		return
	}

	clock := state.InvitationTime()
	if clock <= t.config.InvitationTimeout {
		state.SetInvitationTime(clock + 1)
		return
	}

	state.SetStatus(peer.StatusAvailable)
	state.ClearGroupOwner()
	state.ClearInvitedBy()
	state.SetInvitationTime(0)

	logrus.WithFields(logrus.Fields{
		"function": "checkInvitation",
		"node":     node,
		"cycle":    t.cycle,
		"clock":    clock,
		"timeout":  t.config.InvitationTimeout,
	}).Info("Group invitation timed out")

	t.observer.InvitationTimedOut(node)
}

// evictDriftedMembers removes every client that is no longer in range and asks
// the client's connection manager to drop the connection when the client still
// considers itself connected to this owner.
func (t *Tracker) evictDriftedMembers(node peer.NodeID, state interfaces.NodeState, current map[peer.NodeID]struct{}) {
	group := state.CurrentGroup()
	if group == nil {
		return
	}

	for _, member := range group.Members() {
		if _, inRange := current[member]; inRange {
			continue
		}
		group.Remove(member)

		remote, ok := t.states.State(member)
		if !ok || remote == nil {
			panic(fmt.Sprintf("proximity: no state for group member %d of owner %d", member, node))
		}

		cancel := false
		if owner, hasOwner := remote.GroupOwner(); remote.Status() == peer.StatusConnected && hasOwner && owner == node {
			dst := event.Endpoint{Node: member, Role: t.config.ManagerRole}
			ev := event.New(event.KindCancelConnectionRequest, t.endpoint(node), dst, nil, t.cycle)
			t.sender.Send(ev, t.config.ManagementChannel)
			cancel = true
		}

		logrus.WithFields(logrus.Fields{
			"function":    "evictDriftedMembers",
			"owner":       node,
			"member":      member,
			"cycle":       t.cycle,
			"cancel_sent": cancel,
			"group_size":  group.Size(),
		}).Info("Group member out of range, removed from group")

		t.observer.MemberEvicted(node, member, cancel)
	}
}

// diffNeighbors returns the peers that left (in previous, not in current) and
// the peers that joined (in current, not in previous), both sorted.
func diffNeighbors(previous, current map[peer.NodeID]struct{}) (left, joined []peer.NodeID) {
	for id := range previous {
		if _, ok := current[id]; !ok {
			left = append(left, id)
		}
	}
	for id := range current {
		if _, ok := previous[id]; !ok {
			joined = append(joined, id)
		}
	}
	sort.Slice(left, func(i, j int) bool { return left[i] < left[j] })
	sort.Slice(joined, func(i, j int) bool { return joined[i] < joined[j] })
	return left, joined
}

func toSet(ids []peer.NodeID) map[peer.NodeID]struct{} {
	set := make(map[peer.NodeID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

type nopObserver struct{}

func (nopObserver) InvitationTimedOut(peer.NodeID) {}
func (nopObserver) MemberEvicted(peer.NodeID, peer.NodeID, bool) {}
