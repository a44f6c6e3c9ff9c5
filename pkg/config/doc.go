// Package config handles configuration management for srcpack.
// It layers embedded TOML defaults, an optional user TOML file,
// SRCPACK_* environment variables and explicit overrides (command-line
// flags) into a single Config passed to the pipeline constructor.
package config
