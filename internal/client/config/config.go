package config

import "time"

// Config holds runtime settings for the pintask CLI.
//
// Fields:
//   - BaseURL: http(s) endpoint of the task backend's REST API.
//   - RealtimeURL: ws(s) endpoint of the change feed. Defaults to BaseURL
//     with the scheme swapped when left empty.
//   - DatabasePath: path of the local SQLite database.
//   - LogPath: path of the rotating log file.
//   - RequestTimeout: per-request deadline for gateway calls.
//   - RetryInterval: pause between bounded retry attempts.
type Config struct {
	BaseURL        string
	RealtimeURL    string
	DatabasePath   string
	LogPath        string
	RequestTimeout time.Duration
	RetryInterval  time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = "http://127.0.0.1:3000"
	c.RealtimeURL = ""
	c.DatabasePath = "pintask.db"
	c.LogPath = "pintask.log"
	c.RequestTimeout = 10 * time.Second
	c.RetryInterval = 100 * time.Millisecond
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// ResolveRealtimeURL returns the websocket endpoint, deriving it from
// BaseURL when not configured explicitly.
func (c *Config) ResolveRealtimeURL() string {
	if c.RealtimeURL != "" {
		return c.RealtimeURL
	}
	switch {
	case len(c.BaseURL) >= 8 && c.BaseURL[:8] == "https://":
		return "wss://" + c.BaseURL[8:]
	case len(c.BaseURL) >= 7 && c.BaseURL[:7] == "http://":
		return "ws://" + c.BaseURL[7:]
	default:
		return c.BaseURL
	}
}
