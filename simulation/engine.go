package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/opd-ai/wifip2p/config"
	"github.com/opd-ai/wifip2p/event"
	"github.com/opd-ai/wifip2p/factory"
	"github.com/opd-ai/wifip2p/interfaces"
	"github.com/opd-ai/wifip2p/limits"
	"github.com/opd-ai/wifip2p/metrics"
	"github.com/opd-ai/wifip2p/peer"
	"github.com/opd-ai/wifip2p/proximity"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNodeBusy is returned when a node cannot take part in a group operation
	// because of its current status.
	ErrNodeBusy = errors.New("node busy")

	// ErrNotInvited is returned by Accept for a node without a pending invitation.
	ErrNotInvited = errors.New("node not invited")

	// ErrOutOfRange is returned when two nodes must be neighbors and are not.
	ErrOutOfRange = errors.New("nodes out of range")
)

type node struct {
	info     *peer.Info
	tracker  *proximity.Tracker
	listener *Listener
	manager  *ConnectionManager
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRecorder exports engine activity to r.
func WithRecorder(r *metrics.Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithObserver adds an observer notified alongside the engine's own counters.
func WithObserver(o interfaces.Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// Engine drives a population of simulated nodes, one proximity tracker each.
// Every Step moves the topology, advances every tracker once and delivers
// the events that are due.
type Engine struct {
	cfg       *config.Config
	registry  *peer.Registry
	topology  *Topology
	transport *Transport
	nodes     map[peer.NodeID]*node
	ids       []peer.NodeID
	rng       *rand.Rand
	cycle     int64

	recorder  *metrics.Recorder
	observers []interfaces.Observer
	counts    *countingObserver
}

// NewEngine builds an engine from cfg. Nodes get identifiers 1 to
// cfg.Simulation.Nodes.
func NewEngine(cfg *config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		registry: peer.NewRegistry(),
		nodes:    make(map[peer.NodeID]*node, cfg.Simulation.Nodes),
		rng:      rand.New(rand.NewSource(cfg.Simulation.Seed)),
		counts:   &countingObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}

	topology, err := NewTopology(cfg.Movement, cfg.Simulation.Seed+1)
	if err != nil {
		return nil, err
	}
	e.topology = topology

	var hooks TransportHooks
	if e.recorder != nil {
		hooks = e.recorder
		e.recorder.SetNodes(cfg.Simulation.Nodes)
	}
	transport, err := NewTransport(
		[]config.Channel{cfg.Channels.Primary, cfg.Channels.Service, cfg.Channels.Management},
		cfg.Simulation.Seed+2, hooks)
	if err != nil {
		return nil, err
	}
	e.transport = transport

	trackerFactory, err := factory.NewTrackerFactoryWithConfig(cfg.TrackerConfig())
	if err != nil {
		return nil, err
	}
	trackerConfig := trackerFactory.GetCurrentConfig()

	observer := e.observer()
	for i := 1; i <= cfg.Simulation.Nodes; i++ {
		id := peer.NodeID(i)
		info, err := e.newNodeInfo(id)
		if err != nil {
			return nil, err
		}
		if err := e.registry.Register(info); err != nil {
			return nil, err
		}
		e.topology.AddNode(id)

		tracker, err := trackerFactory.NewTracker(proximity.Collaborators{
			Neighbors: e.topology,
			Sender:    e.transport,
			States:    RegistryDirectory(e.registry),
			Observer:  observer,
		})
		if err != nil {
			return nil, err
		}

		n := &node{
			info:     info,
			tracker:  tracker,
			listener: NewListener(info, e.topology, e.peersChangedHandled),
			manager:  NewConnectionManager(info),
		}
		e.transport.Register(event.Endpoint{Node: id, Role: trackerConfig.ListenerRole}, n.listener.Handle)
		e.transport.Register(event.Endpoint{Node: id, Role: trackerConfig.ManagerRole}, n.manager.Handle)
		e.nodes[id] = n
		e.ids = append(e.ids, id)
	}
	e.topology.Refresh()

	logrus.WithFields(logrus.Fields{
		"function":           "NewEngine",
		"nodes":              cfg.Simulation.Nodes,
		"parallelism":        cfg.Simulation.Parallelism,
		"invitation_timeout": trackerConfig.InvitationTimeout,
	}).Info("Simulation engine created")
	return e, nil
}

func (e *Engine) newNodeInfo(id peer.NodeID) (*peer.Info, error) {
	info := peer.NewInfo(id)
	if e.rng.Float64() < e.cfg.Simulation.DiscoveryRatio {
		info.SetWifiP2pEnabled(true)
		info.SetPeerDiscoveryStarted(true)
	}
	for s := 0; s < e.cfg.Simulation.ServicesPerNode; s++ {
		svc := peer.Service{
			InstanceName:     fmt.Sprintf("node%d-svc%d", id, s),
			RegistrationType: "_p2psim._tcp",
			TXTRecord:        map[string]string{"node": id.String()},
		}
		if err := info.AddService(svc); err != nil {
			return nil, err
		}
	}
	return info, nil
}

func (e *Engine) observer() interfaces.Observer {
	observers := []interfaces.Observer{e.counts}
	if e.recorder != nil {
		observers = append(observers, e.recorder)
	}
	return multiObserver(append(observers, e.observers...))
}

func (e *Engine) peersChangedHandled() {
	if e.recorder != nil {
		e.recorder.PeersChangedHandled()
	}
}

// Topology returns the engine's topology.
func (e *Engine) Topology() *Topology {
	return e.topology
}

// Transport returns the engine's transport.
func (e *Engine) Transport() *Transport {
	return e.transport
}

// Node returns the state of id.
func (e *Engine) Node(id peer.NodeID) (*peer.Info, bool) {
	return e.registry.Get(id)
}

// Cycle returns the number of completed steps.
func (e *Engine) Cycle() int64 {
	return e.cycle
}

func (e *Engine) lookup(id peer.NodeID) (*node, error) {
	n, ok := e.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	return n, nil
}

// FormGroup makes owner a group owner with members connected to it.
func (e *Engine) FormGroup(owner peer.NodeID, members ...peer.NodeID) error {
	o, err := e.lookup(owner)
	if err != nil {
		return err
	}
	if o.info.Status() != peer.StatusAvailable && !o.info.IsGroupOwner() {
		return fmt.Errorf("%w: owner %d is %s", ErrNodeBusy, owner, o.info.Status())
	}
	joining := make([]*node, 0, len(members))
	for _, id := range members {
		m, err := e.lookup(id)
		if err != nil {
			return err
		}
		if m.info.Status() == peer.StatusConnected || m.info.IsGroupOwner() {
			return fmt.Errorf("%w: member %d is %s", ErrNodeBusy, id, m.info.Status())
		}
		joining = append(joining, m)
	}

	group := o.info.CurrentGroup()
	if group == nil {
		if group, err = o.info.CreateGroup(); err != nil {
			return fmt.Errorf("form group at %d: %w", owner, err)
		}
	}
	for _, m := range joining {
		id := m.info.ID()
		if err := group.Add(id); err != nil {
			return fmt.Errorf("add %d to group of %d: %w", id, owner, err)
		}
		m.info.SetStatus(peer.StatusConnected)
		m.info.ClearInvitedBy()
		m.info.SetGroupOwner(owner)
	}

	logrus.WithFields(logrus.Fields{
		"function": "FormGroup",
		"owner":    owner,
		"members":  group.Members(),
	}).Info("Group formed")
	return nil
}

// Invite marks to as invited by the group owner from. The invitation expires
// through to's tracker unless Accept is called first.
func (e *Engine) Invite(from, to peer.NodeID) error {
	o, err := e.lookup(from)
	if err != nil {
		return err
	}
	t, err := e.lookup(to)
	if err != nil {
		return err
	}
	if !o.info.IsGroupOwner() {
		return fmt.Errorf("invite from %d: %w", from, peer.ErrNotGroupOwner)
	}
	if t.info.Status() == peer.StatusConnected || t.info.IsGroupOwner() {
		return fmt.Errorf("%w: %d is %s", ErrNodeBusy, to, t.info.Status())
	}

	t.info.SetStatus(peer.StatusInvited)
	t.info.SetInvitedBy(from)
	t.info.SetGroupOwner(from)
	return nil
}

// Accept joins an invited node to the group of the owner that invited it.
// The owner has to be in range and still own a group with room.
func (e *Engine) Accept(id peer.NodeID) error {
	n, err := e.lookup(id)
	if err != nil {
		return err
	}
	if n.info.Status() != peer.StatusInvited {
		return fmt.Errorf("%w: %d is %s", ErrNotInvited, id, n.info.Status())
	}
	from, ok := n.info.InvitedBy()
	if !ok {
		return fmt.Errorf("%w: %d has no inviter", ErrNotInvited, id)
	}
	if !e.topology.InRange(id, from) {
		return fmt.Errorf("%w: %d and %d", ErrOutOfRange, id, from)
	}
	return e.FormGroup(from, id)
}

// SeedGroups forms up to k groups from the current proximity. Each owner takes
// available neighbors as clients up to half the group limit and invites the
// rest. It returns the number of groups formed.
func (e *Engine) SeedGroups(k int) (int, error) {
	order := make([]peer.NodeID, len(e.ids))
	copy(order, e.ids)
	e.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	formed := 0
	for _, owner := range order {
		if formed >= k {
			break
		}
		if e.nodes[owner].info.Status() != peer.StatusAvailable {
			continue
		}

		var clients, invitees []peer.NodeID
		for _, id := range e.topology.Neighbors(owner) {
			if e.nodes[id].info.Status() != peer.StatusAvailable {
				continue
			}
			if len(clients) < limits.MaxGroupClients/2 {
				clients = append(clients, id)
			} else {
				invitees = append(invitees, id)
			}
		}
		if len(clients) == 0 {
			continue
		}

		if err := e.FormGroup(owner, clients...); err != nil {
			return formed, err
		}
		for _, id := range invitees {
			if err := e.Invite(owner, id); err != nil {
				return formed, err
			}
		}
		formed++
	}

	logrus.WithFields(logrus.Fields{
		"function":  "SeedGroups",
		"requested": k,
		"formed":    formed,
	}).Info("Seeded groups from initial proximity")
	return formed, nil
}

// Step runs one cycle.
func (e *Engine) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()

	if e.cycle > 0 {
		e.topology.Move()
	}
	if err := e.advanceAll(ctx); err != nil {
		return err
	}
	delivered := e.transport.Deliver(e.cycle)

	if e.recorder != nil {
		e.recorder.CycleCompleted(e.cycle, e.countOwners(), time.Since(start))
	}
	logrus.WithFields(logrus.Fields{
		"function":  "Engine.Step",
		"cycle":     e.cycle,
		"delivered": delivered,
	}).Debug("Cycle completed")

	e.cycle++
	return nil
}

func (e *Engine) advanceAll(ctx context.Context) error {
	parallelism := e.cfg.Simulation.Parallelism
	if parallelism <= 1 {
		for _, id := range e.ids {
			n := e.nodes[id]
			n.tracker.Advance(id, n.info)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, id := range e.ids {
		id, n := id, e.nodes[id]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n.tracker.Advance(id, n.info)
			return nil
		})
	}
	return g.Wait()
}

// Run executes cycles steps, stopping early when ctx is cancelled.
func (e *Engine) Run(ctx context.Context, cycles int64) error {
	for i := int64(0); i < cycles; i++ {
		if err := e.Step(ctx); err != nil {
			return fmt.Errorf("cycle %d: %w", e.cycle, err)
		}
	}
	return nil
}

func (e *Engine) countOwners() int {
	owners := 0
	for _, id := range e.ids {
		if e.nodes[id].info.IsGroupOwner() {
			owners++
		}
	}
	return owners
}

// Stats summarises a run.
type Stats struct {
	Cycles             int64
	Nodes              int
	Groups             int
	Connected          int
	Invited            int
	Available          int
	Transport          TransportStats
	PeerRefreshes      int64
	ServicesDiscovered int64
	InvitationTimeouts int64
	Evictions          int64
	CancelsSent        int64
	CancelsApplied     int64
}

// Stats returns a summary of the run so far.
func (e *Engine) Stats() Stats {
	s := Stats{
		Cycles:             e.cycle,
		Nodes:              len(e.ids),
		Transport:          e.transport.Stats(),
		InvitationTimeouts: e.counts.timeouts.Load(),
		Evictions:          e.counts.evictions.Load(),
		CancelsSent:        e.counts.cancels.Load(),
	}
	for _, id := range e.ids {
		n := e.nodes[id]
		if n.info.IsGroupOwner() {
			s.Groups++
		}
		switch n.info.Status() {
		case peer.StatusConnected:
			s.Connected++
		case peer.StatusInvited:
			s.Invited++
		case peer.StatusAvailable:
			s.Available++
		}
		s.PeerRefreshes += n.listener.Refreshes()
		s.ServicesDiscovered += n.listener.ServicesDiscovered()
		s.CancelsApplied += n.manager.Cancelled()
	}
	return s
}

// RegistryDirectory exposes r as an interfaces.StateDirectory.
func RegistryDirectory(r *peer.Registry) interfaces.StateDirectory {
	return interfaces.StateDirectoryFunc(func(id peer.NodeID) (interfaces.NodeState, bool) {
		info, ok := r.Get(id)
		if !ok {
			return nil, false
		}
		return info, true
	})
}

type countingObserver struct {
	timeouts  atomic.Int64
	evictions atomic.Int64
	cancels   atomic.Int64
}

func (c *countingObserver) InvitationTimedOut(peer.NodeID) {
	c.timeouts.Add(1)
}

func (c *countingObserver) MemberEvicted(_, _ peer.NodeID, cancelSent bool) {
	c.evictions.Add(1)
	if cancelSent {
		c.cancels.Add(1)
	}
}

type multiObserver []interfaces.Observer

func (m multiObserver) InvitationTimedOut(node peer.NodeID) {
	for _, o := range m {
		o.InvitationTimedOut(node)
	}
}

func (m multiObserver) MemberEvicted(owner, member peer.NodeID, cancelSent bool) {
	for _, o := range m {
		o.MemberEvicted(owner, member, cancelSent)
	}
}
