// Package config loads, normalizes, and validates callqa configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CALLQA_API_URL and CALLQA_TOKEN. The Config type centralizes every knob the
// CLI and the upload coordinator need, so backend location, poll cadence, and
// local state directories are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
