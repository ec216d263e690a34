package bsplight

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gekko3d/bsplight/lighting"
	"github.com/gekko3d/bsplight/logging"
)

type Config struct {
	Lighting lighting.Config `toml:"lighting"`
	Cache    CacheConfig     `toml:"cache"`
	Logging  logging.Config  `toml:"logging"`
}

type CacheConfig struct {
	SweepInterval time.Duration `toml:"sweep_interval"`
	StaleAfter    time.Duration `toml:"stale_after"` // entries not updated this long are swept
}

// LoadConfig reads a TOML file over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Lighting: lighting.DefaultConfig(),
		Cache: CacheConfig{
			SweepInterval: 10 * time.Second,
			StaleAfter:    10 * time.Second,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "console",
		},
	}
}

// LightingConfig merges the cache section into the pipeline settings.
func (c *Config) LightingConfig() lighting.Config {
	out := c.Lighting
	out.SweepInterval = c.Cache.SweepInterval.Seconds()
	out.StaleAfter = c.Cache.StaleAfter.Seconds()
	return out
}
