// Package config loads the bfield command settings.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/geal-ai/bfieldmap"
)

// EnvelopeConfig mirrors bfieldmap.Envelope. Lengths in mm, field in kT.
type EnvelopeConfig struct {
	ZMax         float64 `json:"zMax" mapstructure:"zMax"`
	RMax         float64 `json:"rMax" mapstructure:"rMax"`
	ZBeam        float64 `json:"zBeam" mapstructure:"zBeam"`
	RBeam        float64 `json:"rBeam" mapstructure:"rBeam"`
	DefaultField float64 `json:"defaultField" mapstructure:"defaultField"`
}

// CompareConfig holds the scan used by the compare command.
type CompareConfig struct {
	Points int     `json:"points" mapstructure:"points"` // grid points per side
	Extent float64 `json:"extent" mapstructure:"extent"` // half width of the x-y plane, mm
	Z      float64 `json:"z" mapstructure:"z"`           // plane position, mm
}

// Config holds all settings.
type Config struct {
	LogLevel string         `json:"logLevel" mapstructure:"logLevel"`
	Envelope EnvelopeConfig `json:"envelope" mapstructure:"envelope"`
	Compare  CompareConfig  `json:"compare" mapstructure:"compare"`
}

// Load reads configuration from path (JSON or YAML, by extension) over the
// defaults. An empty path uses defaults and BFIELD_* environment variables
// only, e.g. BFIELD_LOGLEVEL or BFIELD_ENVELOPE_ZMAX.
func Load(path string) (*Config, error) {
	v := viper.New()

	env := bfieldmap.DefaultEnvelope()
	v.SetDefault("logLevel", "info")
	v.SetDefault("envelope.zMax", env.ZMax)
	v.SetDefault("envelope.rMax", env.RMax)
	v.SetDefault("envelope.zBeam", env.ZBeam)
	v.SetDefault("envelope.rBeam", env.RBeam)
	v.SetDefault("envelope.defaultField", env.DefaultField)
	v.SetDefault("compare.points", 101)
	v.SetDefault("compare.extent", 10000.0)
	v.SetDefault("compare.z", 0.0)

	v.SetEnvPrefix("BFIELD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if cfg.Compare.Points < 2 {
		return nil, fmt.Errorf("compare.points must be at least 2, got %d", cfg.Compare.Points)
	}
	return &cfg, nil
}

// MapEnvelope converts the envelope settings for bfieldmap.WithEnvelope.
func (c *Config) MapEnvelope() bfieldmap.Envelope {
	return bfieldmap.Envelope{
		ZMax:         c.Envelope.ZMax,
		RMax:         c.Envelope.RMax,
		ZBeam:        c.Envelope.ZBeam,
		RBeam:        c.Envelope.RBeam,
		DefaultField: c.Envelope.DefaultField,
	}
}
