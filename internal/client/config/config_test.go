package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	require.Equal(t, "http://127.0.0.1:3000", cfg.BaseURL)
	require.Equal(t, "pintask.db", cfg.DatabasePath)
	require.Equal(t, 10*time.Second, cfg.RequestTimeout)
	require.Equal(t, 100*time.Millisecond, cfg.RetryInterval)
}

func TestResolveRealtimeURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "explicit", cfg: Config{BaseURL: "http://x", RealtimeURL: "ws://feed"}, want: "ws://feed"},
		{name: "derived http", cfg: Config{BaseURL: "http://api.example.com"}, want: "ws://api.example.com"},
		{name: "derived https", cfg: Config{BaseURL: "https://api.example.com"}, want: "wss://api.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.cfg.ResolveRealtimeURL())
		})
	}
}

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()
	os.Args = []string{"pintask", "-a", "http://10.0.0.1:8080", "-t", "5"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	require.Equal(t, "http://10.0.0.1:8080", cfg.BaseURL)
	require.Equal(t, 5*time.Second, cfg.RequestTimeout)
	// untouched field keeps its default
	require.Equal(t, "pintask.db", cfg.DatabasePath)
}

func TestParseJson(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"base_url":"http://json:3000","request_timeout":"7s"}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	os.Args = []string{"pintask", "-c", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	require.Equal(t, "http://json:3000", cfg.BaseURL)
	require.Equal(t, 7*time.Second, cfg.RequestTimeout)
	require.Equal(t, "pintask.db", cfg.DatabasePath)
}

func TestFlagsOverrideJson(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"base_url":"http://json:3000"}`), 0o600))

	os.Args = []string{"pintask", "-c", path, "-a", "http://flag:3000"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)

	require.Equal(t, "http://flag:3000", cfg.BaseURL)
}
