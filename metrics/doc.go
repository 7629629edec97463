// Package metrics exposes Prometheus metrics for a proximity simulation.
//
// Each Recorder owns a private registry so several simulations can run in one
// process without colliding on metric names.
package metrics
