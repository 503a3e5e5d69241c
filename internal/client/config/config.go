package config

import "time"

// Config holds runtime settings for the PhotoSafe CLI.
//
// Fields:
//   - APIEndpoint: base URL of the backend API.
//   - TokenFile: path of the file holding the session token. Empty means
//     the token is prompted for interactively.
//   - DBPath: path of the local SQLite database.
//   - Workers: number of concurrent upload workers.
//   - OnlineCheckInterval: how often the client probes server reachability.
type Config struct {
	APIEndpoint         string
	TokenFile           string
	DBPath              string
	Workers             int
	OnlineCheckInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIEndpoint = "http://127.0.0.1:8080"
	c.TokenFile = ""
	c.DBPath = "photosafe.db"
	c.Workers = 4
	c.OnlineCheckInterval = 3 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
