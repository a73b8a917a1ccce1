// Package config loads and validates the kotosub TOML configuration.
// All product-tunable pipeline values (reading-speed budget, merge gap,
// chunking, retry policy, concurrency) live here as defaults rather than
// hard constants.
package config
