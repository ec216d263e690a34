package bsplight

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ShippedFileMatchesDefaults(t *testing.T) {
	cfg, err := LoadConfig("config/lightprobe.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lightprobe.toml")
	data := "[lighting]\nlight_interp_speed = 2.5\nambient_boost = false\n\n[cache]\nstale_after = \"30s\"\n\n[logging]\nformat = \"json\"\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, float32(2.5), cfg.Lighting.LightInterpSpeed)
	assert.False(t, cfg.Lighting.AmbientBoost)
	assert.True(t, cfg.Lighting.LightAveraging)
	assert.Equal(t, 30*time.Second, cfg.Cache.StaleAfter)
	assert.Equal(t, 10*time.Second, cfg.Cache.SweepInterval)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)

	lc := cfg.LightingConfig()
	assert.Equal(t, 30.0, lc.StaleAfter)
	assert.Equal(t, 10.0, lc.SweepInterval)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[lighting\n"), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}
