// Package config handles configuration loading for nexus.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. Values left out of the file keep their defaults, and a missing
// file means all defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from NEXUS_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/nexus/config.yaml
//  3. ~/.config/nexus/config.yaml
//
// A path ending in .toml is parsed as TOML; anything else as YAML.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	storage:
//	  path: "${HOME}/nexus/nexus.db"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// Storage:
//
//	storage:
//	  backend: "sqlite"      # sqlite, bolt, memory
//	  driver: "sqlite"       # sqlite (pure Go), sqlite3 (cgo)
//	  path: "~/.local/share/nexus/nexus.db"
//	  quota_bytes: 5242880   # 0 disables the quota
//
// Record store:
//
//	store:
//	  save_failure_policy: "keep"   # keep, rollback
//
// Notes:
//
//	notes:
//	  autosave_delay: "1s"
//
// Logging:
//
//	logging:
//	  level: "warn"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// The same settings in TOML:
//
//	[storage]
//	backend = "bolt"
//	path = "/var/lib/nexus/nexus.bolt"
//
// # Usage
//
//	cfg, err := config.LoadOrDefault("")
//	if err != nil {
//	    return err
//	}
package config
