package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/namepilot/namepilot/internal/registry"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "250ms" or "24h".
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Config carries the deployment knobs of the engine. Everything has a
// working default; a YAML file and NAMEPILOT_* environment variables
// can override it, env winning over file.
type Config struct {
	Environment string `yaml:"environment"` // development | production

	CachePath    string `yaml:"cachePath"`
	BootstrapURL string `yaml:"bootstrapURL"`

	RefreshInterval Duration `yaml:"refreshInterval"`
	StaleAfter      Duration `yaml:"staleAfter"`

	BatchSize  int      `yaml:"batchSize"`
	BatchDelay Duration `yaml:"batchDelay"`

	// ExtraTLDs extends the critical-TLD overlay, e.g. with in-house
	// WHOIS patterns for additional zones.
	ExtraTLDs []registry.TLDConfig `yaml:"extraTLDs"`
}

const (
	devRefreshInterval  = 24 * time.Hour
	prodRefreshInterval = 7 * 24 * time.Hour
)

func Default() Config {
	cfg := Config{
		Environment:  "production",
		BootstrapURL: registry.DefaultBootstrapURL,
		StaleAfter:   Duration(30 * 24 * time.Hour),
		BatchSize:    5,
		BatchDelay:   Duration(500 * time.Millisecond),
	}
	if d, err := os.UserCacheDir(); err == nil && d != "" {
		cfg.CachePath = filepath.Join(d, "namepilot", "registry.json")
	}
	return cfg
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv applies NAMEPILOT_* overrides on top of cfg.
func FromEnv(cfg Config) Config {
	if v := os.Getenv("NAMEPILOT_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("NAMEPILOT_CACHE_PATH"); v != "" {
		cfg.CachePath = v
	}
	if v := os.Getenv("NAMEPILOT_BOOTSTRAP_URL"); v != "" {
		cfg.BootstrapURL = v
	}
	if v := os.Getenv("NAMEPILOT_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RefreshInterval = Duration(d)
		}
	}
	return cfg
}

// EffectiveRefreshInterval resolves the refresh cadence: an explicit
// setting wins, otherwise development refreshes daily and production
// weekly.
func (c Config) EffectiveRefreshInterval() time.Duration {
	if c.RefreshInterval > 0 {
		return c.RefreshInterval.Std()
	}
	if c.Environment == "development" {
		return devRefreshInterval
	}
	return prodRefreshInterval
}

// Overlay is the critical-TLD table plus any configured extras.
func (c Config) Overlay() []registry.TLDConfig {
	return append(registry.CriticalTLDs(), c.ExtraTLDs...)
}
