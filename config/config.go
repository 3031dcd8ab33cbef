// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Limits enforced by Validate. The core assumes configs inside these ranges.
const (
	MaxNumParticles = 1_000_000
	MaxMaxAge       = 255
)

// Config holds all simulation configuration parameters.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Field      FieldConfig      `yaml:"field"`
	Screen     ScreenConfig     `yaml:"screen"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// SimulationConfig holds the particle simulation parameters.
type SimulationConfig struct {
	NumParticles int     `yaml:"num_particles"` // 1..1,000,000
	MaxAge       int     `yaml:"max_age"`       // 1..255 trail cohorts
	SpeedFactor  float64 `yaml:"speed_factor"`  // 0..1 velocity multiplier
	Animate      bool    `yaml:"animate"`       // false freezes the field
	DropRate     float64 `yaml:"drop_rate"`     // per-frame recycle fraction per particle
	Bounds       Bounds  `yaml:"bounds"`        // geographic extent particles live in
}

// Bounds is a geographic extent [minLon, minLat, maxLon, maxLat] in degrees.
type Bounds struct {
	MinLon float64 `yaml:"min_lon"`
	MinLat float64 `yaml:"min_lat"`
	MaxLon float64 `yaml:"max_lon"`
	MaxLat float64 `yaml:"max_lat"`
}

// FieldConfig describes the velocity field raster.
type FieldConfig struct {
	Path     string  `yaml:"path"`      // PNG with u,v in R,G channels; empty = no field
	MaxSpeed float64 `yaml:"max_speed"` // m/s at full channel deflection
}

// ScreenConfig holds display settings for the graphical driver.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// TelemetryConfig holds stats collection settings.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // seconds per stats window
	LogStats    bool    `yaml:"log_stats"`
}

var global *Config

// Init loads configuration and stores it globally.
// Call once at startup before any Cfg() access.
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks all ranges the simulation core assumes. It is the single
// rejection point for invalid configurations; nothing past it re-checks.
func (c *Config) Validate() error {
	s := &c.Simulation
	if s.NumParticles < 1 || s.NumParticles > MaxNumParticles {
		return fmt.Errorf("config: num_particles %d out of range [1, %d]", s.NumParticles, MaxNumParticles)
	}
	if s.MaxAge < 1 || s.MaxAge > MaxMaxAge {
		return fmt.Errorf("config: max_age %d out of range [1, %d]", s.MaxAge, MaxMaxAge)
	}
	if s.SpeedFactor < 0 || s.SpeedFactor > 1 {
		return fmt.Errorf("config: speed_factor %v out of range [0, 1]", s.SpeedFactor)
	}
	if s.DropRate < 0 || s.DropRate > 1 {
		return fmt.Errorf("config: drop_rate %v out of range [0, 1]", s.DropRate)
	}
	b := s.Bounds
	if b.MinLon >= b.MaxLon || b.MinLat >= b.MaxLat {
		return fmt.Errorf("config: degenerate bounds [%v, %v, %v, %v]", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
	}
	if c.Field.MaxSpeed < 0 {
		return fmt.Errorf("config: max_speed %v must be non-negative", c.Field.MaxSpeed)
	}
	if c.Telemetry.StatsWindow <= 0 {
		return fmt.Errorf("config: stats_window %v must be positive", c.Telemetry.StatsWindow)
	}
	return nil
}
