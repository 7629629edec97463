package testing

import (
	"sync"

	"github.com/opd-ai/wifip2p/peer"
)

// StaticNeighborView implements interfaces.NeighborView with neighbor sets
// set explicitly by the test.
type StaticNeighborView struct {
	neighbors map[peer.NodeID][]peer.NodeID
	mu        sync.RWMutex
}

// NewStaticNeighborView creates a view in which every node is isolated
func NewStaticNeighborView() *StaticNeighborView {
	return &StaticNeighborView{
		neighbors: make(map[peer.NodeID][]peer.NodeID),
	}
}

// Set replaces the neighbors of node.
func (v *StaticNeighborView) Set(node peer.NodeID, neighbors ...peer.NodeID) {
	cp := make([]peer.NodeID, len(neighbors))
	copy(cp, neighbors)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.neighbors[node] = cp
}

// Neighbors implements interfaces.NeighborView.Neighbors
func (v *StaticNeighborView) Neighbors(node peer.NodeID) []peer.NodeID {
	v.mu.RLock()
	defer v.mu.RUnlock()

	current := v.neighbors[node]
	out := make([]peer.NodeID, len(current))
	copy(out, current)
	return out
}
