package scene

import (
	"fmt"
	"math"

	"GopherWater/internal/gpu"
	"GopherWater/internal/logger"

	"github.com/alitto/pond/v2"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// sunSteps is the quantization of the sun direction in the cache key.
const sunSteps = 64

type envKey struct {
	preset  SkyPreset
	x, y, z int
}

func keyFor(preset SkyPreset, sun mgl32.Vec3) envKey {
	q := func(v float32) int { return int(math.Round(float64(v) * sunSteps)) }
	return envKey{preset: preset, x: q(sun[0]), y: q(sun[1]), z: q(sun[2])}
}

func (k envKey) sun() mgl32.Vec3 {
	d := mgl32.Vec3{float32(k.x), float32(k.y), float32(k.z)}
	if d.Len() == 0 {
		return mgl32.Vec3{0, 1, 0}
	}
	return d.Normalize()
}

// GenerateCubemap evaluates Radiance at every texel centre of six size×size
// faces, in gpu cube face order.
func GenerateCubemap(size int, sun mgl32.Vec3, a AtmosphereParams) [6][]float32 {
	var faces [6][]float32
	workers := pond.NewPool(6)
	defer workers.StopAndWait()

	group := workers.NewGroup()
	for f := range faces {
		f := f
		faces[f] = make([]float32, size*size*4)
		group.Submit(func() {
			pix := faces[f]
			for y := 0; y < size; y++ {
				for x := 0; x < size; x++ {
					s := (float32(x) + 0.5) / float32(size)
					t := (float32(y) + 0.5) / float32(size)
					c := Radiance(gpu.CubeDirection(f, s, t), sun, a)
					i := (y*size + x) * 4
					pix[i], pix[i+1], pix[i+2], pix[i+3] = c[0], c[1], c[2], 1
				}
			}
		})
	}
	group.Wait()
	return faces
}

// EnvironmentCache holds the sky cubemap and regenerates it only when the
// preset or the quantized sun direction changes.
type EnvironmentCache struct {
	dev         gpu.Device
	size        int
	target      gpu.Target
	key         envKey
	valid       bool
	generations int
}

func NewEnvironmentCache(dev gpu.Device, size int) *EnvironmentCache {
	if size < 4 {
		size = 4
	}
	return &EnvironmentCache{dev: dev, size: size}
}

// Get returns the cubemap for preset and sun, regenerating it if needed.
func (c *EnvironmentCache) Get(preset SkyPreset, sun mgl32.Vec3) (gpu.Target, error) {
	key := keyFor(preset, sun)
	if c.valid && key == c.key {
		return c.target, nil
	}
	if c.target == nil {
		t, err := c.dev.NewTarget(gpu.TargetSpec{
			Name:   "environment",
			Width:  c.size,
			Height: c.size,
			Format: gpu.FormatRGBA8,
			Filter: gpu.FilterLinear,
			Cube:   true,
		})
		if err != nil {
			return nil, fmt.Errorf("scene: create environment: %w", err)
		}
		c.target = t
	}

	faces := GenerateCubemap(c.size, key.sun(), preset.Params())
	if err := c.dev.UploadCube(c.target, faces); err != nil {
		c.valid = false
		return nil, fmt.Errorf("scene: upload environment: %w", err)
	}
	c.key, c.valid = key, true
	c.generations++
	logger.Log.Info("Environment regenerated",
		zap.Stringer("preset", preset),
		zap.Int("size", c.size),
		zap.Int("generation", c.generations))
	return c.target, nil
}

// Generations counts how many cubemaps have been built.
func (c *EnvironmentCache) Generations() int { return c.generations }

func (c *EnvironmentCache) Release() {
	if c.target != nil {
		c.dev.Release(c.target)
		c.target = nil
	}
	c.valid = false
}
