// Package interfaces defines the collaborators of the proximity tracker.
//
// The tracker never reaches into the simulator directly. Everything it reads or
// writes goes through the abstractions in this package, which lets the same
// tracker run against the in-memory simulator, the test doubles in the
// testing package, or any other topology and transport.
//
// # Core Interfaces
//
// [NeighborView] reports a node's in-range peers for the current cycle.
//
// [ChannelSender] accepts events for delivery on a logical channel. It is
// fire-and-forget: delay and loss belong to the channel.
//
// [NodeState] is the subset of per-node state the tracker touches. *peer.Info
// implements it.
//
// [StateDirectory] looks up another node's state. The tracker only reads a
// remote node's status and group owner through it:
//
//	dir := interfaces.StateDirectoryFunc(func(id peer.NodeID) (interfaces.NodeState, bool) {
//	    info, ok := registry.Get(id)
//	    if !ok {
//	        return nil, false
//	    }
//	    return info, true
//	})
//
// [Observer] receives notifications meant for a human watching the run, such
// as an expired invitation.
//
// # Configuration
//
// [TrackerConfig] holds the channels, roles and invitation bound:
//
//	config := interfaces.DefaultTrackerConfig()
//	config.InvitationTimeout = 300
//	if err := config.Validate(); err != nil {
//	    log.Fatalf("invalid config: %v", err)
//	}
package interfaces
