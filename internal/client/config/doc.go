// Package config loads runtime configuration for the PhotoSafe CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend API
//	-t string   path of the session token file
//	-d string   path of the local SQLite database
//	-w int      number of concurrent upload workers
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "3s" or integer nanoseconds:
//
//	{
//	  "api_endpoint": "http://127.0.0.1:8080",
//	  "token_file": "/home/user/.photosafe/token",
//	  "db_path": "photosafe.db",
//	  "workers": 4,
//	  "online_check_interval": "3s"
//	}
//
// Primary API
//
//   - type Config                     — holds endpoint, token, storage and worker settings
//   - func LoadConfig() *Config       — builds Config by applying defaults, JSON, then flags
//   - func (*Config) LoadDefaults()   — sets sensible defaults
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
