// Package config loads, defaults, normalizes, and validates the TOML
// configuration for ward. Load never mutates the file; it expands paths,
// fills defaults for anything unset, and rejects values the pipeline
// cannot run with.
package config
