// Package config loads bridge configuration: defaults, then an optional YAML
// file, then BRIDGE_* environment overrides.
package config
