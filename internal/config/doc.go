// Package config loads, validates, and defaults podpirate's TOML configuration.
package config
