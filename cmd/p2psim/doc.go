// Package main provides p2psim, the command-line front end of the proximity
// simulation.
//
// # Usage
//
// Run with default settings:
//
//	go run ./cmd/p2psim run
//
// Run from a configuration file, overriding the cycle count:
//
//	go run ./cmd/p2psim run --config sim.toml --cycles 5000
//
// Print a configuration file to start from:
//
//	go run ./cmd/p2psim config > sim.toml
//
// # Flags
//
// Flags given on the command line win over the configuration file:
//   - --nodes, --cycles, --seed, --groups, --parallelism: simulation size
//   - --metrics-addr: serve Prometheus metrics at /metrics while running
//   - --log-level: logrus level
//
// The WIFIP2P_* environment variables documented in package factory override
// the tracker settings of the configuration file; flags override both.
package main
