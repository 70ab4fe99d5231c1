package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"GopherWater/internal/scene"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 2, c.StepsPerFrame)
	assert.Equal(t, 3, c.MaxRecreate)
	assert.Equal(t, 20, c.StartDrops)
	assert.Equal(t, scene.SkyDefault, c.SkyPreset())
}

func TestBindParsesFlags(t *testing.T) {
	c := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.Bind(fs)
	err := fs.Parse([]string{
		"-grid", "64", "-sky", "night", "-light", "0,1,0.5",
		"-intensity", "2.5", "-specular", "0", "-tint", "-shallow", "1,0.5,0",
		"-rain", "-paused", "-log-level", "debug",
	})
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, 64, c.Grid)
	assert.Equal(t, scene.SkyNight, c.SkyPreset())
	assert.Equal(t, Vec3{0, 1, 0.5}, c.Light)
	assert.InDelta(t, 2.5, c.Intensity, 1e-6)
	assert.Zero(t, c.Specular)
	assert.True(t, c.Tint)
	assert.Equal(t, Vec3{1, 0.5, 0}, c.Shallow)
	assert.True(t, c.Rain)
	assert.True(t, c.Paused)
	assert.Equal(t, "debug", c.LogLevel)

	l := c.SceneLight()
	assert.InDelta(t, 1, l.Direction.Len(), 1e-5)
	assert.InDelta(t, 2.5, l.Intensity, 1e-6)
}

func TestBindRejectsMalformedVectors(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(discard{})
	Default().Bind(fs)
	assert.Error(t, fs.Parse([]string{"-light", "1,2"}))
	assert.Error(t, fs.Parse([]string{"-deep", "a,b,c"}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestValidateRejectsOutOfRange(t *testing.T) {
	cases := map[string]func(c *Config){
		"grid too small":  func(c *Config) { c.Grid = 4 },
		"no steps":        func(c *Config) { c.StepsPerFrame = 0 },
		"bright light":    func(c *Config) { c.Intensity = MaxIntensity + 1 },
		"bad specular":    func(c *Config) { c.Specular = -1 },
		"zero light":      func(c *Config) { c.Light = Vec3{} },
		"unknown sky":     func(c *Config) { c.Sky = "mars" },
		"color over one":  func(c *Config) { c.Deep = Vec3{0, 0, 2} },
		"huge sphere":     func(c *Config) { c.SphereRadius = 1 },
		"negative retry":  func(c *Config) { c.MaxRecreate = -1 },
		"zero width":      func(c *Config) { c.Width = 0 },
		"negative drops":  func(c *Config) { c.StartDrops = -3 },
		"no caustic size": func(c *Config) { c.CausticsSize = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(c)
			err := c.Validate()
			assert.True(t, errors.Is(err, ErrInvalid), "expected ErrInvalid, got %v", err)
		})
	}
}

func TestSaveAndLoadKeepsDefaultsForMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "water.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"grid": 128, "sky": "sunset", "tint": true}`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 128, c.Grid)
	assert.Equal(t, scene.SkySunset, c.SkyPreset())
	assert.True(t, c.Tint)
	assert.Equal(t, Default().Width, c.Width)

	out := filepath.Join(dir, "saved.json")
	require.NoError(t, c.Save(out))
	again, err := Load(out)
	require.NoError(t, err)
	assert.Equal(t, c, again)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestQualityPresets(t *testing.T) {
	assert.Equal(t, []string{"high", "low", "medium"}, QualityNames())

	c := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.Bind(fs)
	require.NoError(t, fs.Parse([]string{"-quality", "low", "-grid", "96"}))
	assert.Equal(t, 96, c.Grid, "later flags override the preset")
	assert.Equal(t, PerformanceQuality().CausticsSize, c.CausticsSize)
	assert.Equal(t, 1, c.StepsPerFrame)
	require.NoError(t, c.Validate())

	for _, name := range QualityNames() {
		c := Default()
		require.NoError(t, c.ApplyQuality(name))
		assert.NoError(t, c.Validate(), name)
	}
	assert.True(t, errors.Is(Default().ApplyQuality("ultra"), ErrInvalid))
}

func TestParseAppliesFileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "water.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"grid": 128, "sky": "cloudy"}`), 0o644))

	var frames int
	c, err := Parse("test", []string{"-sky", "night", "-config", path, "-frames", "5"}, func(fs *flag.FlagSet) {
		fs.IntVar(&frames, "frames", 1, "frames")
	})
	require.NoError(t, err)
	assert.Equal(t, 128, c.Grid)
	assert.Equal(t, scene.SkyNight, c.SkyPreset())
	assert.Equal(t, 5, frames)

	_, err = Parse("test", []string{"-grid", "3"}, nil)
	assert.True(t, errors.Is(err, ErrInvalid))
}
