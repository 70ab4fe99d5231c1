// Package config holds the user-facing settings of the water demo. A
// Config starts from Default, is optionally overlaid by a JSON file and
// then by command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"GopherWater/internal/heightfield"
	"GopherWater/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// MaxIntensity bounds the light and specular intensity sliders.
	MaxIntensity float32 = 4
	// MaxStepsPerFrame bounds how many propagate steps one frame may run.
	MaxStepsPerFrame = 8
)

var ErrInvalid = errors.New("config: invalid value")

// Config is the exportable settings document.
type Config struct {
	Grid          int     `json:"grid"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	CausticsSize  int     `json:"caustics_size"`
	EnvSize       int     `json:"environment_size"`
	StepsPerFrame int     `json:"steps_per_frame"`
	Seed          int64   `json:"seed"`
	StartDrops    int     `json:"start_drops"`
	MaxRecreate   int     `json:"max_recreate"`
	Workers       int     `json:"workers"`
	Sky           string  `json:"sky"`
	Light         Vec3    `json:"light_direction"`
	LightColor    Vec3    `json:"light_color"`
	Intensity     float32 `json:"light_intensity"`
	Specular      float32 `json:"specular_intensity"`
	SphereRadius  float32 `json:"sphere_radius"`
	Tint          bool    `json:"tint"`
	Shallow       Vec3    `json:"shallow_color"`
	Deep          Vec3    `json:"deep_color"`
	Rain          bool    `json:"rain"`
	Wander        bool    `json:"wander"`
	Physics       bool    `json:"physics"`
	Paused        bool    `json:"paused"`
	LogLevel      string  `json:"log_level"`
}

func Default() *Config {
	light := scene.DefaultLight()
	q := DefaultQuality()
	return &Config{
		Grid:          q.Grid,
		Width:         1024,
		Height:        768,
		CausticsSize:  q.CausticsSize,
		EnvSize:       q.EnvSize,
		StepsPerFrame: q.StepsPerFrame,
		Seed:          1,
		StartDrops:    20,
		MaxRecreate:   3,
		Sky:           scene.SkyDefault.String(),
		Light:         Vec3(light.Direction),
		LightColor:    Vec3(light.Color),
		Intensity:     light.Intensity,
		Specular:      light.Specular,
		SphereRadius:  scene.DefaultSphereRadius,
		Shallow:       Vec3{0.45, 0.9, 0.85},
		Deep:          Vec3{0.05, 0.25, 0.45},
		Physics:       true,
		LogLevel:      "info",
	}
}

// Load reads path over the defaults. Fields missing from the file keep
// their default value.
func Load(path string) (*Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return c, nil
}

// Save writes c as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.Func("quality", "resolution preset: "+strings.Join(QualityNames(), ", "), c.ApplyQuality)
	fs.IntVar(&c.Grid, "grid", c.Grid, "heightfield resolution")
	fs.IntVar(&c.Width, "width", c.Width, "window width")
	fs.IntVar(&c.Height, "height", c.Height, "window height")
	fs.IntVar(&c.StepsPerFrame, "steps", c.StepsPerFrame, "propagate steps per frame")
	fs.IntVar(&c.Workers, "workers", c.Workers, "CPU device workers, 0 for all cores")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for tiles, startup drops and noise")
	fs.StringVar(&c.Sky, "sky", c.Sky, "sky preset: default, sunset, cloudy or night")
	fs.Var(&c.Light, "light", "direction towards the sun as x,y,z")
	fs.Var((*float32Value)(&c.Intensity), "intensity", "light intensity")
	fs.Var((*float32Value)(&c.Specular), "specular", "sun highlight intensity")
	fs.BoolVar(&c.Tint, "tint", c.Tint, "tint refracted light by path length")
	fs.Var(&c.Shallow, "shallow", "shallow water color as r,g,b")
	fs.Var(&c.Deep, "deep", "deep water color as r,g,b")
	fs.BoolVar(&c.Rain, "rain", c.Rain, "ambient rain")
	fs.BoolVar(&c.Wander, "wander", c.Wander, "let the sphere wander when idle")
	fs.BoolVar(&c.Physics, "physics", c.Physics, "sphere gravity and buoyancy")
	fs.BoolVar(&c.Paused, "paused", c.Paused, "start with the simulation paused")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
}

// Validate reports the first invalid field, wrapped in ErrInvalid.
func (c *Config) Validate() error {
	bad := func(field string, v any) error {
		return fmt.Errorf("%w: %s = %v", ErrInvalid, field, v)
	}
	switch {
	case c.Grid < heightfield.MinSize || c.Grid > heightfield.MaxSize:
		return bad("grid", c.Grid)
	case c.Width <= 0:
		return bad("width", c.Width)
	case c.Height <= 0:
		return bad("height", c.Height)
	case c.CausticsSize <= 0:
		return bad("caustics_size", c.CausticsSize)
	case c.EnvSize <= 0:
		return bad("environment_size", c.EnvSize)
	case c.StepsPerFrame < 1 || c.StepsPerFrame > MaxStepsPerFrame:
		return bad("steps_per_frame", c.StepsPerFrame)
	case c.StartDrops < 0:
		return bad("start_drops", c.StartDrops)
	case c.Workers < 0:
		return bad("workers", c.Workers)
	case c.MaxRecreate < 0:
		return bad("max_recreate", c.MaxRecreate)
	case !(c.Intensity >= 0 && c.Intensity <= MaxIntensity):
		return bad("light_intensity", c.Intensity)
	case !(c.Specular >= 0 && c.Specular <= MaxIntensity):
		return bad("specular_intensity", c.Specular)
	case !(c.SphereRadius > 0 && c.SphereRadius < 1):
		return bad("sphere_radius", c.SphereRadius)
	}
	if _, err := scene.ParseSkyPreset(c.Sky); err != nil {
		return bad("sky", c.Sky)
	}
	if l := mgl32.Vec3(c.Light).Len(); !(l > 0) || math.IsInf(float64(l), 0) {
		return bad("light_direction", c.Light)
	}
	for name, v := range map[string]Vec3{"light_color": c.LightColor, "shallow_color": c.Shallow, "deep_color": c.Deep} {
		if !v.unit() {
			return bad(name, v)
		}
	}
	return nil
}

// SkyPreset returns the parsed sky, falling back to the default preset.
func (c *Config) SkyPreset() scene.SkyPreset {
	p, err := scene.ParseSkyPreset(c.Sky)
	if err != nil {
		return scene.SkyDefault
	}
	return p
}

// SceneLight builds the light the pipeline starts with.
func (c *Config) SceneLight() scene.Light {
	l := scene.DefaultLight()
	l.SetDirection(mgl32.Vec3(c.Light))
	l.Color = mgl32.Vec3(c.LightColor)
	l.Intensity = c.Intensity
	l.Specular = c.Specular
	return l
}

// Vec3 is a JSON array of three numbers and a flag of the form x,y,z.
type Vec3 [3]float32

func (v Vec3) String() string {
	return fmt.Sprintf("%g,%g,%g", v[0], v[1], v[2])
}

func (v *Vec3) Set(s string) error {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return fmt.Errorf("expected x,y,z, got %q", s)
	}
	var out Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return fmt.Errorf("component %d of %q: %w", i, s, err)
		}
		out[i] = float32(f)
	}
	*v = out
	return nil
}

func (v Vec3) unit() bool {
	for _, c := range v {
		if !(c >= 0 && c <= 1) {
			return false
		}
	}
	return true
}

type float32Value float32

func (f *float32Value) String() string {
	return strconv.FormatFloat(float64(*f), 'g', -1, 32)
}

func (f *float32Value) Set(s string) error {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return err
	}
	*f = float32Value(v)
	return nil
}
