// Package config loads the TOML configuration of a proximity simulation.
//
// A file only needs the keys it changes; everything else keeps the value from
// Default. Unknown keys are an error.
//
//	[simulation]
//	nodes = 200
//	parallelism = 4
//
//	[channels.service]
//	drop_rate = 0.2
package config
