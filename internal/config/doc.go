// Package config handles configuration loading for the railboard client.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults so a missing config
// file still yields a usable localhost setup.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from RAILBOARD_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/railboard/config.yaml
//  3. ~/.config/railboard/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	api:
//	  base_url: "${RAILBOARD_API_URL}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	api:
//	  timeout: "15s"
//	realtime:
//	  dial_timeout: "10s"
//
// # Configuration Sections
//
// API settings:
//
//	api:
//	  base_url: "https://rail.example.com"
//	  timeout: "15s"
//
// Realtime push settings:
//
//	realtime:
//	  enabled: true
//	  namespace: "/schedules"
//
// Local credential storage:
//
//	storage:
//	  path: "~/.config/railboard/credentials.db"
//	  key_path: "~/.config/railboard/device.key"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json, color
package config
