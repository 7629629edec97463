// Package simulation runs proximity trackers over a population of simulated
// Wi-Fi Direct nodes.
//
// The package provides the collaborators a tracker needs:
//   - Topology moves nodes with a random-waypoint model and answers
//     neighbor queries from a per-cycle snapshot.
//   - Transport queues events per channel with configurable delay and loss
//     and hands them to the handler registered for the destination.
//   - Listener and ConnectionManager are the receiving components of a node.
//
// Engine ties them together:
//
//	engine, err := simulation.NewEngine(cfg, simulation.WithRecorder(recorder))
//	if err != nil {
//	    return err
//	}
//	if _, err := engine.SeedGroups(cfg.Simulation.Groups); err != nil {
//	    return err
//	}
//	err = engine.Run(ctx, cfg.Simulation.Cycles)
//
// A run is reproducible for a given seed when Parallelism is 1. With more
// workers the order in which trackers send, and therefore which events the
// transport drops, depends on scheduling.
package simulation
