package interfaces

import (
	"errors"
	"fmt"

	"github.com/opd-ai/wifip2p/event"
	"github.com/opd-ai/wifip2p/limits"
	"github.com/opd-ai/wifip2p/peer"
)

// ChannelID identifies a logical delivery channel.
type ChannelID uint8

// NeighborView reports the nodes currently within radio range of a node.
type NeighborView interface {
	// Neighbors returns the in-range peers of node. The result must not change
	// between calls within the same cycle.
	Neighbors(node peer.NodeID) []peer.NodeID
}

// ChannelSender delivers events between node components.
type ChannelSender interface {
	// Send hands ev to the channel. Delivery timing and loss are the channel's
	// concern; no acknowledgment is returned.
	Send(ev event.Event, channel ChannelID)
}

// NodeState is the per-node state the proximity tracker reads and mutates.
type NodeState interface {
	IsWifiP2pEnabled() bool
	IsPeerDiscoveryStarted() bool
	Services() []peer.Service

	Status() peer.Status
	SetStatus(status peer.Status)
	GroupOwner() (peer.NodeID, bool)
	ClearGroupOwner()
	ClearInvitedBy()
	InvitationTime() int64
	SetInvitationTime(cycles int64)

	IsGroupOwner() bool
	CurrentGroup() *peer.Group
}

// StateDirectory gives read access to other nodes' state.
type StateDirectory interface {
	State(node peer.NodeID) (NodeState, bool)
}

// StateDirectoryFunc adapts a lookup function to StateDirectory.
type StateDirectoryFunc func(node peer.NodeID) (NodeState, bool)

// State implements StateDirectory.
func (f StateDirectoryFunc) State(node peer.NodeID) (NodeState, bool) {
	return f(node)
}

// Observer receives user-visible notifications that are not network events.
type Observer interface {
	// InvitationTimedOut is called when node's pending invitation expired.
	InvitationTimedOut(node peer.NodeID)
	// MemberEvicted is called when owner dropped member for leaving radio range.
	MemberEvicted(owner, member peer.NodeID, cancelSent bool)
}

// TrackerConfig holds configuration for proximity tracker instances
type TrackerConfig struct {
	// PrimaryChannel carries peers-changed notifications
	PrimaryChannel ChannelID

	// ServiceChannel carries service advertisements
	ServiceChannel ChannelID

	// ManagementChannel carries cancel-connection requests; expected zero delay and zero loss
	ManagementChannel ChannelID

	// TrackerRole is the source role of every event the tracker emits
	TrackerRole event.Role

	// ListenerRole receives peers-changed and service-available events
	ListenerRole event.Role

	// ManagerRole receives cancel-connection requests
	ManagerRole event.Role

	// InvitationTimeout is the invitation bound in cycles
	InvitationTimeout int64
}

var (
	// ErrInvalidInvitationTimeout indicates the invitation bound is out of range.
	ErrInvalidInvitationTimeout = errors.New("invalid invitation timeout")

	// ErrRoleConflict indicates two components share a role.
	ErrRoleConflict = errors.New("role conflict")
)

// DefaultTrackerConfig returns the default tracker configuration: channels 1,
// 2 and 0 for notifications, services and management, and a 150-cycle
// invitation bound.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		PrimaryChannel:    1,
		ServiceChannel:    2,
		ManagementChannel: 0,
		TrackerRole:       0,
		ListenerRole:      1,
		ManagerRole:       2,
		InvitationTimeout: limits.DefaultInvitationTimeout,
	}
}

// Validate checks the configuration for consistency.
func (c TrackerConfig) Validate() error {
	if err := limits.ValidateInvitationTimeout(c.InvitationTimeout); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInvitationTimeout, err)
	}
	if c.TrackerRole == c.ListenerRole || c.TrackerRole == c.ManagerRole || c.ListenerRole == c.ManagerRole {
		return fmt.Errorf("%w: tracker=%d listener=%d manager=%d",
			ErrRoleConflict, c.TrackerRole, c.ListenerRole, c.ManagerRole)
	}
	return nil
}
