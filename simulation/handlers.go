package simulation

import (
	"sync/atomic"

	"github.com/opd-ai/wifip2p/event"
	"github.com/opd-ai/wifip2p/interfaces"
	"github.com/opd-ai/wifip2p/peer"
	"github.com/sirupsen/logrus"
)

// Listener is the discovery listener of one node. It receives peers-changed
// notifications from the node's own tracker and service advertisements from
// nearby trackers.
type Listener struct {
	info      *peer.Info
	neighbors interfaces.NeighborView
	onRefresh func()

	refreshes  atomic.Int64
	discovered atomic.Int64
}

// NewListener creates the listener for info. onRefresh, if not nil, is called
// after every processed peers-changed notification.
func NewListener(info *peer.Info, neighbors interfaces.NeighborView, onRefresh func()) *Listener {
	return &Listener{info: info, neighbors: neighbors, onRefresh: onRefresh}
}

// Handle processes one delivered event.
func (l *Listener) Handle(ev event.Event) {
	switch ev.Kind {
	case event.KindPeersChanged:
		l.handlePeersChanged()
	case event.KindServiceAvailable:
		l.handleServiceAvailable(ev)
	default:
		logrus.WithFields(logrus.Fields{
			"function": "Listener.Handle",
			"node":     l.info.ID(),
			"kind":     ev.Kind,
		}).Warn("Listener ignoring unexpected event")
	}
}

// handlePeersChanged refreshes the discovered peer list, which only a node
// running discovery keeps.
func (l *Listener) handlePeersChanged() {
	if !l.info.IsPeerDiscoveryStarted() {
		return
	}
	l.info.SetDiscoveredPeers(l.neighbors.Neighbors(l.info.ID()))
	l.refreshes.Add(1)
	if l.onRefresh != nil {
		l.onRefresh()
	}
}

// handleServiceAvailable records an advertised service. The sender does not
// know whether this node is listening, so the check happens here.
func (l *Listener) handleServiceAvailable(ev event.Event) {
	if !l.info.IsWifiP2pEnabled() || !l.info.IsPeerDiscoveryStarted() {
		return
	}
	svc, ok := ev.Service()
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function": "handleServiceAvailable",
			"node":     l.info.ID(),
			"event_id": ev.ID,
		}).Warn("Service advertisement without a service payload")
		return
	}
	l.info.AddDiscoveredService(ev.Src.Node, svc)
	l.discovered.Add(1)
}

// Refreshes returns how many peers-changed notifications were processed.
func (l *Listener) Refreshes() int64 {
	return l.refreshes.Load()
}

// ServicesDiscovered returns how many service advertisements were recorded.
func (l *Listener) ServicesDiscovered() int64 {
	return l.discovered.Load()
}

// ConnectionManager handles connection management requests for one node.
type ConnectionManager struct {
	info      *peer.Info
	cancelled atomic.Int64
}

// NewConnectionManager creates the connection manager for info.
func NewConnectionManager(info *peer.Info) *ConnectionManager {
	return &ConnectionManager{info: info}
}

// Handle processes one delivered event. A cancel request only takes effect
// when it comes from the owner this node is connected to; stale requests from
// a previous owner are ignored.
func (m *ConnectionManager) Handle(ev event.Event) {
	if ev.Kind != event.KindCancelConnectionRequest {
		logrus.WithFields(logrus.Fields{
			"function": "ConnectionManager.Handle",
			"node":     m.info.ID(),
			"kind":     ev.Kind,
		}).Warn("Connection manager ignoring unexpected event")
		return
	}

	owner, ok := m.info.GroupOwner()
	if m.info.Status() != peer.StatusConnected || !ok || owner != ev.Src.Node {
		return
	}
	m.info.SetStatus(peer.StatusAvailable)
	m.info.ClearGroupOwner()
	m.cancelled.Add(1)

	logrus.WithFields(logrus.Fields{
		"function": "ConnectionManager.Handle",
		"node":     m.info.ID(),
		"owner":    owner,
		"cycle":    ev.Cycle,
	}).Info("Connection cancelled by group owner")
}

// Cancelled returns how many connections this manager dropped.
func (m *ConnectionManager) Cancelled() int64 {
	return m.cancelled.Load()
}
