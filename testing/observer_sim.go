package testing

import (
	"sync"

	"github.com/opd-ai/wifip2p/peer"
)

// Eviction records one MemberEvicted notification.
type Eviction struct {
	Owner      peer.NodeID
	Member     peer.NodeID
	CancelSent bool
}

// RecordingObserver implements interfaces.Observer by remembering every notification.
type RecordingObserver struct {
	timeouts  []peer.NodeID
	evictions []Eviction
	mu        sync.Mutex
}

// NewRecordingObserver creates an empty observer.
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{}
}

// InvitationTimedOut implements interfaces.Observer.InvitationTimedOut
func (o *RecordingObserver) InvitationTimedOut(node peer.NodeID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.timeouts = append(o.timeouts, node)
}

// MemberEvicted implements interfaces.Observer.MemberEvicted
func (o *RecordingObserver) MemberEvicted(owner, member peer.NodeID, cancelSent bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.evictions = append(o.evictions, Eviction{Owner: owner, Member: member, CancelSent: cancelSent})
}

// Timeouts returns the nodes whose invitation expired, in notification order.
func (o *RecordingObserver) Timeouts() []peer.NodeID {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]peer.NodeID, len(o.timeouts))
	copy(out, o.timeouts)
	return out
}

// Evictions returns the recorded evictions in notification order.
func (o *RecordingObserver) Evictions() []Eviction {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Eviction, len(o.evictions))
	copy(out, o.evictions)
	return out
}
