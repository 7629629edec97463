// Package proximity tracks a simulated Wi-Fi Direct node's physical proximity
// to other nodes and manages the transient group it belongs to or owns.
//
// A Tracker is created once per node and advanced exactly once per simulation
// cycle. Each cycle it:
//
//  1. reads the node's in-range peers from an interfaces.NeighborView;
//  2. compares them with the previous cycle's snapshot and, if any peer left
//     or joined, sends one peers-changed event to the node's own listener;
//  3. if Wi-Fi P2P is enabled, discovery is running and the node advertises
//     services, sends each service to each newly seen peer;
//  4. replaces the snapshot;
//  5. expires a pending invitation whose clock exceeds the configured bound,
//     or advances the clock;
//  6. if the node owns a group, removes every client no longer in range and
//     asks those still connected to it to cancel their connection.
//
// The first cycle only records the snapshot so the first comparison is
// meaningful.
//
// Example:
//
//	tracker, err := proximity.New(interfaces.DefaultTrackerConfig(), proximity.Collaborators{
//	    Neighbors: topology,
//	    Sender:    transport,
//	    States:    directory,
//	    Observer:  recorder,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for cycle := 0; cycle < 1000; cycle++ {
//	    tracker.Advance(info.ID(), info)
//	}
//
// Trackers are not safe for concurrent use; different nodes' trackers may be
// advanced in parallel.
package proximity
