package simulation

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/opd-ai/wifip2p/config"
	"github.com/opd-ai/wifip2p/peer"
)

// ErrUnknownNode is returned when an operation names a node that was never added.
var ErrUnknownNode = errors.New("unknown node")

// Position is a point in the simulation field.
type Position struct {
	X, Y float64
}

// Distance returns the Euclidean distance between p and q.
func (p Position) Distance(q Position) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

type mobileNode struct {
	pos      Position
	waypoint Position
	speed    float64
	pause    int64
	pinned   bool
}

// Topology moves nodes with a random-waypoint model and derives neighbor sets
// from radio range. Neighbor sets are recomputed by Move and Refresh only, so
// reads between two moves always return the same snapshot.
type Topology struct {
	movement config.Movement
	rng      *rand.Rand
	nodes    map[peer.NodeID]*mobileNode
	ids      []peer.NodeID
	snapshot map[peer.NodeID][]peer.NodeID
	mu       sync.RWMutex
}

// NewTopology creates an empty topology.
func NewTopology(movement config.Movement, seed int64) (*Topology, error) {
	if err := movement.Validate(); err != nil {
		return nil, err
	}
	return &Topology{
		movement: movement,
		rng:      rand.New(rand.NewSource(seed)),
		nodes:    make(map[peer.NodeID]*mobileNode),
		snapshot: make(map[peer.NodeID][]peer.NodeID),
	}, nil
}

// AddNode places id at a random position.
func (t *Topology) AddNode(id peer.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos := t.randomPosition()
	t.addLocked(id, &mobileNode{pos: pos, waypoint: pos})
}

// Place puts id at a fixed position and stops it from moving. Unknown nodes
// are added.
func (t *Topology) Place(id peer.NodeID, pos Position) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n, ok := t.nodes[id]; ok {
		n.pos, n.waypoint, n.pinned = pos, pos, true
		return
	}
	t.addLocked(id, &mobileNode{pos: pos, waypoint: pos, pinned: true})
}

func (t *Topology) addLocked(id peer.NodeID, n *mobileNode) {
	if _, exists := t.nodes[id]; !exists {
		t.ids = append(t.ids, id)
		sort.Slice(t.ids, func(i, j int) bool { return t.ids[i] < t.ids[j] })
	}
	t.nodes[id] = n
}

// Position returns the current position of id.
func (t *Topology) Position(id peer.NodeID) (Position, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[id]
	if !ok {
		return Position{}, fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	return n.pos, nil
}

// Move advances every unpinned node by one cycle and recomputes the neighbor sets.
func (t *Topology) Move() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range t.ids {
		t.step(t.nodes[id])
	}
	t.refreshLocked()
}

// Refresh recomputes the neighbor sets without moving anything.
func (t *Topology) Refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refreshLocked()
}

func (t *Topology) step(n *mobileNode) {
	if n.pinned {
		return
	}
	if n.pause > 0 {
		n.pause--
		return
	}
	if n.pos == n.waypoint {
		n.waypoint = t.randomPosition()
		n.speed = t.movement.MinSpeed + t.rng.Float64()*(t.movement.MaxSpeed-t.movement.MinSpeed)
	}

	remaining := n.pos.Distance(n.waypoint)
	if remaining <= n.speed {
		n.pos = n.waypoint
		if t.movement.MaxPause > 0 {
			n.pause = t.rng.Int63n(t.movement.MaxPause + 1)
		}
		return
	}
	ratio := n.speed / remaining
	n.pos.X += (n.waypoint.X - n.pos.X) * ratio
	n.pos.Y += (n.waypoint.Y - n.pos.Y) * ratio
}

func (t *Topology) randomPosition() Position {
	return Position{
		X: t.rng.Float64() * t.movement.FieldSize,
		Y: t.rng.Float64() * t.movement.FieldSize,
	}
}

func (t *Topology) refreshLocked() {
	snapshot := make(map[peer.NodeID][]peer.NodeID, len(t.ids))
	for i, a := range t.ids {
		for _, b := range t.ids[i+1:] {
			if t.nodes[a].pos.Distance(t.nodes[b].pos) <= t.movement.RadioRange {
				snapshot[a] = append(snapshot[a], b)
				snapshot[b] = append(snapshot[b], a)
			}
		}
	}
	for id := range snapshot {
		sort.Slice(snapshot[id], func(i, j int) bool { return snapshot[id][i] < snapshot[id][j] })
	}
	t.snapshot = snapshot
}

// Neighbors implements interfaces.NeighborView.Neighbors
func (t *Topology) Neighbors(node peer.NodeID) []peer.NodeID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	current := t.snapshot[node]
	out := make([]peer.NodeID, len(current))
	copy(out, current)
	return out
}

// InRange reports whether a and b are neighbors in the current snapshot.
func (t *Topology) InRange(a, b peer.NodeID) bool {
	for _, n := range t.Neighbors(a) {
		if n == b {
			return true
		}
	}
	return false
}
