// Package event defines the records exchanged between node components over
// simulated channels.
package event

import (
	"github.com/google/uuid"
	"github.com/opd-ai/wifip2p/peer"
)

// Kind identifies what an event asks the receiving component to do.
type Kind uint8

const (
	// KindPeersChanged tells a node's listener that its in-range peer set changed.
	KindPeersChanged Kind = iota
	// KindServiceAvailable carries one advertised service to a newly seen peer.
	KindServiceAvailable
	// KindCancelConnectionRequest asks a remote connection manager to drop a stale group connection.
	KindCancelConnectionRequest
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindPeersChanged:
		return "peers_changed"
	case KindServiceAvailable:
		return "service_available"
	case KindCancelConnectionRequest:
		return "cancel_connection_request"
	default:
		return "unknown"
	}
}

// Role identifies a component on a node (the tracker, the listener, the
// connection manager).
type Role uint8

// Endpoint is a component on a node.
type Endpoint struct {
	Node peer.NodeID
	Role Role
}

// Event is a tagged record sent from one endpoint to another.
type Event struct {
	ID      uuid.UUID
	Kind    Kind
	Src     Endpoint
	Dst     Endpoint
	Payload any
	Cycle   int64
}

// New creates an event with a fresh identifier.
func New(kind Kind, src, dst Endpoint, payload any, cycle int64) Event {
	return Event{
		ID:      uuid.New(),
		Kind:    kind,
		Src:     src,
		Dst:     dst,
		Payload: payload,
		Cycle:   cycle,
	}
}

// Service returns the service carried by a KindServiceAvailable event.
func (e Event) Service() (peer.Service, bool) {
	svc, ok := e.Payload.(peer.Service)
	return svc, ok
}
