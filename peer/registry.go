package peer

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrNodeExists is returned when a node is registered twice.
var ErrNodeExists = errors.New("node already registered")

// Registry maps node identifiers to their state records.
// It is safe for concurrent use.
type Registry struct {
	nodes map[NodeID]*Info
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[NodeID]*Info)}
}

// Register adds a node's state record.
func (r *Registry) Register(info *Info) error {
	if info == nil {
		return errors.New("node state cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[info.ID()]; exists {
		return fmt.Errorf("%w: %d", ErrNodeExists, info.ID())
	}
	r.nodes[info.ID()] = info

	logrus.WithFields(logrus.Fields{
		"function":    "Registry.Register",
		"node":        info.ID(),
		"total_nodes": len(r.nodes),
	}).Debug("Node registered")
	return nil
}

// Get returns the state record for id.
func (r *Registry) Get(id NodeID) (*Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.nodes[id]
	return info, ok
}

// IDs returns every registered identifier in ascending order.
func (r *Registry) IDs() []NodeID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]NodeID, 0, len(r.nodes))
	for id := range r.nodes {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}
