package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/pintask/internal/flagx"
	"github.com/dmitrijs2005/pintask/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies
// on timex.Duration so JSON can specify intervals either as strings like
// "10s" or as integer nanoseconds. After parsing, values are copied into
// the runtime Config.
type JsonConfig struct {
	BaseURL        string         `json:"base_url"`
	RealtimeURL    string         `json:"realtime_url"`
	DatabasePath   string         `json:"database_path"`
	LogPath        string         `json:"log_path"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	RetryInterval  timex.Duration `json:"retry_interval"`
}

// parseJson overlays Config with values loaded from a JSON file located
// via the -c/-config flags. Absent file path means no JSON layer. Only
// fields present in the file override the current values.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.BaseURL != "" {
		cfg.BaseURL = jc.BaseURL
	}
	if jc.RealtimeURL != "" {
		cfg.RealtimeURL = jc.RealtimeURL
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.LogPath != "" {
		cfg.LogPath = jc.LogPath
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.RetryInterval.Duration != 0 {
		cfg.RetryInterval = time.Duration(jc.RetryInterval.Duration)
	}
}
