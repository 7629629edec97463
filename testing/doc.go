// Package testing provides in-memory collaborators for deterministic tests of
// the proximity tracker.
//
// # Overview
//
// The tracker depends only on the interfaces package. This package supplies
// implementations that do nothing but remember what happened, so a test can
// drive a tracker cycle by cycle and then inspect the result:
//
//   - SimulatedChannel: an interfaces.ChannelSender that records every event
//     with the channel it was sent on
//   - StaticNeighborView: an interfaces.NeighborView whose neighbor sets are
//     set directly by the test
//   - RecordingObserver: an interfaces.Observer that records expired
//     invitations and evictions
//
// # Usage
//
//	view := testing.NewStaticNeighborView()
//	channel := testing.NewSimulatedChannel()
//	view.Set(1, 2, 3)
//
//	tracker, _ := proximity.New(config, proximity.Collaborators{
//	    Neighbors: view,
//	    Sender:    channel,
//	    States:    directory,
//	})
//	tracker.Advance(1, state) // priming
//	view.Set(1, 3, 4)
//	tracker.Advance(1, state)
//
//	if got := len(channel.EventsOfKind(event.KindPeersChanged)); got != 1 {
//	    t.Errorf("expected one notification, got %d", got)
//	}
//
// The simulation package provides the delaying, lossy transport and the moving
// topology used for full runs.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use.
package testing
