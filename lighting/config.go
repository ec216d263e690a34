package lighting

// Config holds the tunables of the per-object pipeline. Times are seconds
// of Clock time.
type Config struct {
	LightAveraging           bool    `toml:"light_averaging"`
	LightInterpSpeed         float32 `toml:"light_interp_speed"`
	AmbientBoost             bool    `toml:"ambient_boost"`
	AmbientBoostMinLuminance float32 `toml:"ambient_boost_min_luminance"`
	AmbientBoostFraction     float32 `toml:"ambient_boost_fraction"`
	AmbientBoostMaxFactor    float32 `toml:"ambient_boost_max_factor"`

	// FadeCutoff is the squared colour magnitude below which a fading
	// light is dropped.
	FadeCutoff float32 `toml:"fade_cutoff"`

	// Stale entry sweep; zero disables it.
	SweepInterval float64 `toml:"-"`
	StaleAfter    float64 `toml:"-"`
}

func DefaultConfig() Config {
	return Config{
		LightAveraging:           true,
		LightInterpSpeed:         5.0,
		AmbientBoost:             true,
		AmbientBoostMinLuminance: 0.3,
		AmbientBoostFraction:     0.1,
		AmbientBoostMaxFactor:    5.0,
		FadeCutoff:               1.0,
		SweepInterval:            10,
		StaleAfter:               10,
	}
}

func (c Config) smoothing() bool {
	return c.LightAveraging && c.LightInterpSpeed > 0
}
