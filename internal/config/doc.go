// Package config loads, validates, and defaults the TOML configuration that
// drives the daemon and CLI, including the watched channel list.
package config
