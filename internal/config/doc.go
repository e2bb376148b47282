// Package config loads, normalizes, and validates clipforge configuration
// data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CLIPFORGE_API_KEY (optionally sourced from a local .env file). The Config
// type centralizes every knob the CLI and pipeline need, so sampling cadence,
// segmentation thresholds, editing style, and target editor version are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
