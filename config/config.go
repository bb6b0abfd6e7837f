// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/collagen/obstacle"
	"github.com/pthm-cable/collagen/sampling"
	"github.com/pthm-cable/collagen/tensor"
	"github.com/pthm-cable/collagen/vmath"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Placement policies for the initial population.
const (
	PlacementOrigin = "origin" // all particles at (0, 0, 0)
	PlacementCenter = "center" // all particles at the domain centre
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	World      WorldConfig      `yaml:"world"`
	Simulation SimulationConfig `yaml:"simulation"`
	Sampling   SamplingConfig   `yaml:"sampling"`
	Network    NetworkConfig    `yaml:"network"`
	Tensor     TensorConfig     `yaml:"tensor"`
	Render     RenderConfig     `yaml:"render"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// WorldConfig holds the domain dimensions. The domain is unbounded; its size
// only fixes the "center" placement point.
type WorldConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// SimulationConfig holds the random walk parameters.
type SimulationConfig struct {
	Particles      int     `yaml:"particles"`       // N
	Diffusion      float64 `yaml:"diffusion"`       // D0, free diffusion coefficient
	DT             float64 `yaml:"dt"`              // simulated time per step
	Dimensions     int     `yaml:"dimensions"`      // 2 or 3
	Placement      string  `yaml:"placement"`       // origin | center
	ParticleRadius float64 `yaml:"particle_radius"` // probe radius for collision tests
	Seed           int64   `yaml:"seed"`            // 0 = time-based
	Workers        int     `yaml:"workers"`         // walk chunks; <= 1 runs serially
}

// SamplingConfig holds direction sampling parameters.
type SamplingConfig struct {
	Direction2D string `yaml:"direction_2d"` // angle | rejection
}

// NetworkConfig describes the obstacle lattice.
type NetworkConfig struct {
	Radius  float64 `yaml:"radius"`   // r
	Spacing float64 `yaml:"spacing"`  // L
	OriginX float64 `yaml:"origin_x"` // lattice reference origin
	OriginY float64 `yaml:"origin_y"`
}

// TensorConfig holds diffusion tensor accumulation parameters.
type TensorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Mode    string `yaml:"mode"` // corrected | legacy
	Emit    bool   `yaml:"emit"` // write the text tensor stream each step
}

// RenderConfig holds drawing parameters.
type RenderConfig struct {
	MaxParticles    int     `yaml:"max_particles"` // draw at most this many particles
	ParticleDrawMin float32 `yaml:"particle_draw_min"`
	StepsPerFrame   int     `yaml:"steps_per_frame"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	LogInterval         int `yaml:"log_interval"` // steps between stats log lines
	PerfCollectorWindow int `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Start           vmath.Vec3      // common start point of every particle
	Field           obstacle.Field  // obstacle lattice
	TensorMode      tensor.Mode     // parsed Tensor.Mode
	DirectionMethod sampling.Method // parsed Sampling.Direction2D
	ScreenW32       float32         // Screen.Width as float32
	ScreenH32       float32         // Screen.Height as float32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
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

// Defaults returns the embedded default configuration.
func Defaults() (*Config, error) {
	return Load("")
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

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

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize validates the config and recomputes derived values. Call it after
// changing fields programmatically.
func (c *Config) Finalize() error {
	if err := c.Validate(); err != nil {
		return err
	}
	return c.computeDerived()
}

// Validate checks parameter ranges.
func (c *Config) Validate() error {
	s := c.Simulation
	switch {
	case s.Particles < 1:
		return fmt.Errorf("%w: simulation.particles must be >= 1, got %d", ErrInvalid, s.Particles)
	case s.DT <= 0:
		return fmt.Errorf("%w: simulation.dt must be > 0, got %v", ErrInvalid, s.DT)
	case s.Diffusion < 0:
		return fmt.Errorf("%w: simulation.diffusion must be >= 0, got %v", ErrInvalid, s.Diffusion)
	case s.Dimensions != 2 && s.Dimensions != 3:
		return fmt.Errorf("%w: simulation.dimensions must be 2 or 3, got %d", ErrInvalid, s.Dimensions)
	case s.ParticleRadius < 0:
		return fmt.Errorf("%w: simulation.particle_radius must be >= 0, got %v", ErrInvalid, s.ParticleRadius)
	case s.Placement != PlacementOrigin && s.Placement != PlacementCenter:
		return fmt.Errorf("%w: simulation.placement must be %q or %q, got %q", ErrInvalid, PlacementOrigin, PlacementCenter, s.Placement)
	case c.Network.Spacing <= 0:
		return fmt.Errorf("%w: network.spacing must be > 0, got %v", ErrInvalid, c.Network.Spacing)
	case c.Network.Radius < 0:
		return fmt.Errorf("%w: network.radius must be >= 0, got %v", ErrInvalid, c.Network.Radius)
	}
	if _, err := tensor.ParseMode(c.Tensor.Mode); err != nil {
		return fmt.Errorf("%w: tensor.mode: %v", ErrInvalid, err)
	}
	if _, err := sampling.ParseMethod(c.Sampling.Direction2D); err != nil {
		return fmt.Errorf("%w: sampling.direction_2d: %v", ErrInvalid, err)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() error {
	mode, err := tensor.ParseMode(c.Tensor.Mode)
	if err != nil {
		return err
	}
	method, err := sampling.ParseMethod(c.Sampling.Direction2D)
	if err != nil {
		return err
	}
	c.Derived.TensorMode = mode
	c.Derived.DirectionMethod = method

	c.Derived.Start = vmath.Vec3{}
	if c.Simulation.Placement == PlacementCenter {
		c.Derived.Start = vmath.Vec3{X: c.World.Width / 2, Y: c.World.Height / 2}
	}

	c.Derived.Field = obstacle.New(c.Network.Radius, c.Network.Spacing, c.Network.OriginX, c.Network.OriginY)
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)

	if c.Render.StepsPerFrame < 1 {
		c.Render.StepsPerFrame = 1
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
