package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfigFile(t, `
player:
  feature_playlist: movies
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Player.AdsPerBreak)
	assert.Equal(t, "movies", cfg.Player.FeaturePlaylist)
	assert.False(t, cfg.Player.Shuffle)
	assert.Equal(t, 200*time.Millisecond, cfg.Player.PollInterval())
	assert.Equal(t, 2*time.Second, cfg.Player.StartRetryBudget())
	assert.Equal(t, 400*time.Millisecond, cfg.Player.Debounce())
	assert.Equal(t, 250*time.Millisecond, cfg.Player.BreakSettle())
	assert.Equal(t, 50, cfg.Player.ResumeEpsilonMs)
	assert.Equal(t, "mpv", cfg.Engine.Type)
	assert.Equal(t, "data/retrocast.db", cfg.Store.Path)
	assert.Equal(t, "data/VideoFiles", cfg.Media.VideoDir)
	assert.Equal(t, "data/MediaFiles", cfg.Media.MediaDir)
	assert.Equal(t, ":5000", cfg.Guide.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Guide.Horizon())
	assert.Equal(t, 30*time.Second, cfg.Guide.FallbackDuration())
	assert.Equal(t, 1500*time.Millisecond, cfg.Guide.ProbeTimeout())
}

func TestLoad_ExplicitValues(t *testing.T) {
	path := writeConfigFile(t, `
player:
  ads_per_break: 5
  shuffle: true
  poll_interval_ms: 500
engine:
  type: mock
  settings:
    socket: /tmp/mpv.sock
store:
  path: /var/lib/retrocast/db.sqlite
guide:
  addr: ":8080"
  horizon_hours: 12
  fallback_duration_sec: 60
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Player.AdsPerBreak)
	assert.True(t, cfg.Player.Shuffle)
	assert.Equal(t, 500*time.Millisecond, cfg.Player.PollInterval())
	assert.Equal(t, "mock", cfg.Engine.Type)
	assert.Equal(t, "/tmp/mpv.sock", cfg.Engine.Settings["socket"])
	assert.Equal(t, "/var/lib/retrocast/db.sqlite", cfg.Store.Path)
	assert.Equal(t, ":8080", cfg.Guide.Addr)
	assert.Equal(t, 12*time.Hour, cfg.Guide.Horizon())
	assert.Equal(t, time.Minute, cfg.Guide.FallbackDuration())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RETROCAST_STORE_PATH", "/env/override.db")
	t.Setenv("RETROCAST_GUIDE_ADDR", ":9999")

	path := writeConfigFile(t, `
store:
  path: /file/value.db
guide:
  addr: ":5000"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/env/override.db", cfg.Store.Path)
	assert.Equal(t, ":9999", cfg.Guide.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "player: [not a map\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "ads per break too large",
			mutate:  func(c *Config) { c.Player.AdsPerBreak = 50 },
			wantErr: true,
			errMsg:  "AdsPerBreak",
		},
		{
			name:    "poll interval too small",
			mutate:  func(c *Config) { c.Player.PollIntervalMs = 10 },
			wantErr: true,
			errMsg:  "PollIntervalMs",
		},
		{
			name:    "empty store path",
			mutate:  func(c *Config) { c.Store.Path = "" },
			wantErr: true,
			errMsg:  "Path",
		},
		{
			name:    "horizon out of range",
			mutate:  func(c *Config) { c.Guide.HorizonHours = 200 },
			wantErr: true,
			errMsg:  "HorizonHours",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, "player:\n  feature_playlist: movies\n")
			cfg, err := Load(path)
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()

			if tt.wantErr {
				require.Error(t, err, "expected validation to fail")
				assert.Contains(t, err.Error(), tt.errMsg,
					"error message should mention the problematic field")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}
