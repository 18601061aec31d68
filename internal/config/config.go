// Package config handles collider generation settings.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-colliders/pkg/collider"
	"github.com/Faultbox/midgard-colliders/pkg/mesh"
)

// Placement spaces for generated meshes.
const (
	SpaceWorld = "world"
	SpaceLocal = "local"
)

// Config holds all collider generation settings.
type Config struct {
	Capsule CapsuleConfig `yaml:"capsule"`
	Fit     FitConfig     `yaml:"fit"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// CapsuleConfig holds capsule mesh tessellation settings.
type CapsuleConfig struct {
	Longitudes int     `yaml:"longitudes"`
	Latitudes  int     `yaml:"latitudes"`
	Rings      int     `yaml:"rings"`
	UVProfile  string  `yaml:"uv_profile"` // FIXED, ASPECT or UNIFORM
	Radius     float64 `yaml:"radius"`     // primitive command only
	Depth      float64 `yaml:"depth"`      // primitive command only
}

// FitConfig holds shape fitting settings.
type FitConfig struct {
	Axis    string  `yaml:"axis"`    // X, Y or Z
	Offset  float64 `yaml:"offset"`  // added to the fitted radius; negative shrinks
	Space   string  `yaml:"space"`   // world or local
	Workers int     `yaml:"workers"` // 0 = one per CPU
}

// OutputConfig holds mesh export settings.
type OutputConfig struct {
	Triangulate bool `yaml:"triangulate"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	p := mesh.DefaultParams()
	return &Config{
		Capsule: CapsuleConfig{
			Longitudes: p.Longitudes,
			Latitudes:  p.Latitudes,
			Rings:      p.Rings,
			UVProfile:  p.UVProfile.String(),
			Radius:     p.Radius,
			Depth:      p.Depth,
		},
		Fit: FitConfig{
			Axis:    collider.AxisZ.String(),
			Offset:  0,
			Space:   SpaceWorld,
			Workers: 0,
		},
		Output: OutputConfig{
			Triangulate: false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings that cannot be interpreted. Out of range segment
// counts are not errors; the mesh builder clamps them.
func (c *Config) Validate() error {
	var errs []error
	if _, err := mesh.ParseUVProfile(c.Capsule.UVProfile); err != nil {
		errs = append(errs, err)
	}
	if _, err := collider.ParseAxis(c.Fit.Axis); err != nil {
		errs = append(errs, err)
	}
	if c.Fit.Space != SpaceWorld && c.Fit.Space != SpaceLocal {
		errs = append(errs, fmt.Errorf("unknown space %q (want %s or %s)", c.Fit.Space, SpaceWorld, SpaceLocal))
	}
	if c.Fit.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Fit.Workers))
	}
	return errors.Join(errs...)
}

// MeshParams returns the tessellation settings as builder parameters with the
// given radius and depth. Call Validate first; an unknown profile falls back to FIXED.
func (c *Config) MeshParams(radius, depth float64) mesh.Params {
	uv, _ := mesh.ParseUVProfile(c.Capsule.UVProfile)
	return mesh.Params{
		Longitudes: c.Capsule.Longitudes,
		Latitudes:  c.Capsule.Latitudes,
		Rings:      c.Capsule.Rings,
		Depth:      depth,
		Radius:     radius,
		UVProfile:  uv,
	}
}

// Axis returns the fitting axis. Call Validate first; an unknown axis falls back to Z.
func (c *Config) Axis() collider.Axis {
	a, _ := collider.ParseAxis(c.Fit.Axis)
	return a
}
