// Package config loads and validates the TOML configuration for the daemon
// and CLI. Loading follows three phases: Default() seeds every field,
// normalize() expands paths and fills gaps (including env-var fallbacks for
// secrets), and Validate() rejects unusable combinations. Callers always
// receive a fully expanded, validated config or an error.
package config
