package peer

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/opd-ai/wifip2p/limits"
	"github.com/sirupsen/logrus"
)

var (
	// ErrAlreadyGroupOwner is returned when a node that already owns a group creates another.
	ErrAlreadyGroupOwner = errors.New("node already owns a group")

	// ErrNotGroupOwner is returned by group operations on a node without a group.
	ErrNotGroupOwner = errors.New("node does not own a group")

	// ErrSelfMember is returned when an owner is added to its own group.
	ErrSelfMember = errors.New("group owner cannot be a client of its own group")

	// ErrDuplicateService is returned when a service with the same instance name is registered twice.
	ErrDuplicateService = errors.New("service already registered")
)

// Info is the mutable Wi-Fi Direct state of one node: capability flags, local
// services, group relationship and the invitation clock. The owning node
// mutates it; remote nodes only read status and group owner.
//
// Info is safe for concurrent use.
type Info struct {
	id NodeID

	wifiP2pEnabled       bool
	peerDiscoveryStarted bool
	services             []Service

	status         Status
	groupOwner     NodeID
	hasGroupOwner  bool
	invitedBy      NodeID
	hasInvitedBy   bool
	invitationTime int64

	isGroupOwner bool
	currentGroup *Group

	discoveredPeers    []NodeID
	discoveredServices map[NodeID][]Service

	mu sync.RWMutex
}

// NewInfo creates the state record for node id. The node starts Available with
// Wi-Fi P2P disabled and no services.
func NewInfo(id NodeID) *Info {
	logrus.WithFields(logrus.Fields{
		"function": "NewInfo",
		"node":     id,
	}).Debug("Creating node state")

	return &Info{
		id:                 id,
		status:             StatusAvailable,
		discoveredServices: make(map[NodeID][]Service),
	}
}

// ID returns the node identifier.
func (i *Info) ID() NodeID {
	return i.id
}

// IsWifiP2pEnabled reports whether the Wi-Fi P2P radio is on.
func (i *Info) IsWifiP2pEnabled() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.wifiP2pEnabled
}

// SetWifiP2pEnabled switches the Wi-Fi P2P radio.
func (i *Info) SetWifiP2pEnabled(enabled bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.wifiP2pEnabled = enabled
}

// IsPeerDiscoveryStarted reports whether peer discovery is active.
func (i *Info) IsPeerDiscoveryStarted() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.peerDiscoveryStarted
}

// SetPeerDiscoveryStarted starts or stops peer discovery.
func (i *Info) SetPeerDiscoveryStarted(started bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.peerDiscoveryStarted = started
}

// Services returns a copy of the local service list.
func (i *Info) Services() []Service {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]Service, len(i.services))
	for idx, svc := range i.services {
		out[idx] = svc.Clone()
	}
	return out
}

// AddService registers a local service after validating it against the limits package.
func (i *Info) AddService(svc Service) error {
	if err := limits.ValidateServiceName(svc.InstanceName); err != nil {
		return err
	}
	if err := limits.ValidateServiceRecord(svc.TXTRecord); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if err := limits.ValidateServiceCount(len(i.services)); err != nil {
		return err
	}
	for _, existing := range i.services {
		if existing.InstanceName == svc.InstanceName {
			return fmt.Errorf("%w: %s", ErrDuplicateService, svc.InstanceName)
		}
	}
	i.services = append(i.services, svc.Clone())

	logrus.WithFields(logrus.Fields{
		"function":      "AddService",
		"node":          i.id,
		"instance_name": svc.InstanceName,
		"service_count": len(i.services),
	}).Info("Local service registered")
	return nil
}

// RemoveService unregisters the service with the given instance name and
// reports whether it was present.
func (i *Info) RemoveService(instanceName string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	for idx, svc := range i.services {
		if svc.InstanceName == instanceName {
			i.services = append(i.services[:idx], i.services[idx+1:]...)
			return true
		}
	}
	return false
}

// ClearServices removes every local service.
func (i *Info) ClearServices() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.services = nil
}

// Status returns the group relationship status.
func (i *Info) Status() Status {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.status
}

// SetStatus changes the status. The invitation clock is reset whenever the
// node enters or leaves StatusInvited.
func (i *Info) SetStatus(status Status) {
	i.mu.Lock()
	defer i.mu.Unlock()

	old := i.status
	if (old == StatusInvited) != (status == StatusInvited) {
		i.invitationTime = 0
	}
	i.status = status

	if old != status {
		logrus.WithFields(logrus.Fields{
			"function":   "SetStatus",
			"node":       i.id,
			"old_status": old,
			"new_status": status,
		}).Debug("Node status changed")
	}
}

// GroupOwner returns the recorded group owner, if any.
func (i *Info) GroupOwner() (NodeID, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.groupOwner, i.hasGroupOwner
}

// SetGroupOwner records owner as this node's group owner.
func (i *Info) SetGroupOwner(owner NodeID) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.groupOwner = owner
	i.hasGroupOwner = true
}

// ClearGroupOwner forgets the recorded group owner.
func (i *Info) ClearGroupOwner() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.groupOwner = 0
	i.hasGroupOwner = false
}

// InvitedBy returns the node that sent the pending invitation, if any.
func (i *Info) InvitedBy() (NodeID, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.invitedBy, i.hasInvitedBy
}

// SetInvitedBy records the sender of a pending invitation.
func (i *Info) SetInvitedBy(from NodeID) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.invitedBy = from
	i.hasInvitedBy = true
}

// ClearInvitedBy forgets the sender of the pending invitation.
func (i *Info) ClearInvitedBy() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.invitedBy = 0
	i.hasInvitedBy = false
}

// InvitationTime returns the number of cycles spent in StatusInvited.
func (i *Info) InvitationTime() int64 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.invitationTime
}

// SetInvitationTime sets the invitation clock.
func (i *Info) SetInvitationTime(cycles int64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.invitationTime = cycles
}

// IsGroupOwner reports whether this node owns a group.
func (i *Info) IsGroupOwner() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.isGroupOwner
}

// CurrentGroup returns the owned group, or nil when the node is not a group owner.
func (i *Info) CurrentGroup() *Group {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.currentGroup
}

// CreateGroup makes this node the owner of a new empty group.
func (i *Info) CreateGroup() (*Group, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.isGroupOwner {
		return nil, fmt.Errorf("%w: node %d", ErrAlreadyGroupOwner, i.id)
	}
	if i.status == StatusInvited {
		i.invitationTime = 0
	}
	i.isGroupOwner = true
	i.currentGroup = NewGroup(i.id)
	i.status = StatusConnected
	i.groupOwner = i.id
	i.hasGroupOwner = true

	logrus.WithFields(logrus.Fields{
		"function": "CreateGroup",
		"node":     i.id,
	}).Info("Group created")
	return i.currentGroup, nil
}

// RemoveGroup dissolves the owned group and returns the node to StatusAvailable.
func (i *Info) RemoveGroup() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.isGroupOwner {
		return fmt.Errorf("%w: node %d", ErrNotGroupOwner, i.id)
	}
	i.isGroupOwner = false
	i.currentGroup = nil
	i.status = StatusAvailable
	i.groupOwner = 0
	i.hasGroupOwner = false

	logrus.WithFields(logrus.Fields{
		"function": "RemoveGroup",
		"node":     i.id,
	}).Info("Group removed")
	return nil
}

// DiscoveredPeers returns the peer list last reported to the listener.
func (i *Info) DiscoveredPeers() []NodeID {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]NodeID, len(i.discoveredPeers))
	copy(out, i.discoveredPeers)
	return out
}

// SetDiscoveredPeers replaces the discovered peer list.
func (i *Info) SetDiscoveredPeers(peers []NodeID) {
	sorted := make([]NodeID, len(peers))
	copy(sorted, peers)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a] < sorted[b] })

	i.mu.Lock()
	defer i.mu.Unlock()
	i.discoveredPeers = sorted
}

// AddDiscoveredService records a service advertised by a remote node.
// A service already known from the same node is replaced.
func (i *Info) AddDiscoveredService(from NodeID, svc Service) {
	i.mu.Lock()
	defer i.mu.Unlock()

	known := i.discoveredServices[from]
	for idx, existing := range known {
		if existing.InstanceName == svc.InstanceName {
			known[idx] = svc.Clone()
			return
		}
	}
	i.discoveredServices[from] = append(known, svc.Clone())
}

// DiscoveredServices returns a copy of the services learned from remote nodes.
func (i *Info) DiscoveredServices() map[NodeID][]Service {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make(map[NodeID][]Service, len(i.discoveredServices))
	for from, services := range i.discoveredServices {
		cp := make([]Service, len(services))
		for idx, svc := range services {
			cp[idx] = svc.Clone()
		}
		out[from] = cp
	}
	return out
}
