// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Player PlayerConfig `yaml:"player"`
	Engine EngineConfig `yaml:"engine"`
	Store  StoreConfig  `yaml:"store"`
	Media  MediaConfig  `yaml:"media"`
	Guide  GuideConfig  `yaml:"guide"`
}

// PlayerConfig represents playback scheduling configuration.
type PlayerConfig struct {
	AdsPerBreak     int    `yaml:"ads_per_break" default:"3" validate:"gte=0,lte=20"`
	FeaturePlaylist string `yaml:"feature_playlist"`
	Shuffle         bool   `yaml:"shuffle"`
	PollIntervalMs  int    `yaml:"poll_interval_ms" default:"200" validate:"gte=50,lte=2000"`
	StartRetryMs    int    `yaml:"start_retry_ms" default:"2000" validate:"gte=100,lte=30000"`
	DebounceMs      int    `yaml:"debounce_ms" default:"400" validate:"gte=0,lte=5000"`
	ResumeEpsilonMs int    `yaml:"resume_epsilon_ms" default:"50" validate:"gte=0,lte=5000"`
	BreakSettleMs   int    `yaml:"break_settle_ms" default:"250" validate:"gte=0,lte=5000"`
}

// PollInterval returns the position sampling interval.
func (c PlayerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// StartRetryBudget returns the engine start confirmation budget.
func (c PlayerConfig) StartRetryBudget() time.Duration {
	return time.Duration(c.StartRetryMs) * time.Millisecond
}

// Debounce returns the input event cooldown.
func (c PlayerConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// BreakSettle returns the settle pause applied when a break fires.
func (c PlayerConfig) BreakSettle() time.Duration {
	return time.Duration(c.BreakSettleMs) * time.Millisecond
}

// EngineConfig represents playback engine configuration.
// Settings are engine-specific and decoded by the engine factory.
type EngineConfig struct {
	Type     string         `yaml:"type" default:"mpv" validate:"required"`
	Settings map[string]any `yaml:"settings"`
}

// StoreConfig represents persistence configuration.
type StoreConfig struct {
	Path string `yaml:"path" default:"data/retrocast.db" validate:"required"`
}

// MediaConfig represents media directory configuration.
type MediaConfig struct {
	// VideoDir holds filler clips, MediaDir holds feature files.
	VideoDir string `yaml:"video_dir" default:"data/VideoFiles"`
	MediaDir string `yaml:"media_dir" default:"data/MediaFiles"`
}

// GuideConfig represents guide server and projector configuration.
type GuideConfig struct {
	Addr                string `yaml:"addr" default:":5000"`
	BaseURL             string `yaml:"base_url" default:"http://localhost:5000"`
	HorizonHours        int    `yaml:"horizon_hours" default:"24" validate:"gte=1,lte=168"`
	FallbackDurationSec int    `yaml:"fallback_duration_sec" default:"30" validate:"gte=1,lte=3600"`
	ProbeTimeoutMs      int    `yaml:"probe_timeout_ms" default:"1500" validate:"gte=100,lte=60000"`
}

// Horizon returns the schedule projection span.
func (c GuideConfig) Horizon() time.Duration {
	return time.Duration(c.HorizonHours) * time.Hour
}

// FallbackDuration returns the duration substituted for unresolvable segments.
func (c GuideConfig) FallbackDuration() time.Duration {
	return time.Duration(c.FallbackDurationSec) * time.Second
}

// ProbeTimeout returns the per-file duration probe timeout.
func (c GuideConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMs) * time.Millisecond
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for deployment-specific fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("RETROCAST_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("RETROCAST_GUIDE_ADDR"); v != "" {
		c.Guide.Addr = v
	}
	if v := os.Getenv("RETROCAST_BASE_URL"); v != "" {
		c.Guide.BaseURL = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}
