package caustics

import (
	"math"
	"testing"

	"GopherWater/internal/gpu"
	"GopherWater/internal/gpu/cpu"
	"GopherWater/internal/heightfield"
	"GopherWater/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const texSize = 64

type fixture struct {
	dev *cpu.Device
	sim *heightfield.Simulator
	gen *Generator
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dev, err := cpu.New(cpu.Options{Workers: 4})
	require.NoError(t, err)
	sim, err := heightfield.NewSimulator(dev, 32)
	require.NoError(t, err)
	gen, err := New(dev, scene.WaterGrid(32), texSize)
	require.NoError(t, err)
	t.Cleanup(func() {
		gen.Release()
		sim.Release()
		dev.Close()
	})
	return fixture{dev: dev, sim: sim, gen: gen}
}

func (f fixture) pixels(t *testing.T, which string) []float32 {
	t.Helper()
	target := f.gen.Texture()
	if which == "raw" {
		target = f.gen.Raw()
	}
	pix, err := f.dev.Pixels(target)
	require.NoError(t, err)
	return pix
}

func red(pix []float32, x, y int) float32 { return pix[(y*texSize+x)*4] }

func TestFlatWaterIsNeutral(t *testing.T) {
	f := newFixture(t)
	_, err := f.gen.Update(f.sim.Current(), mgl32.Vec3{0, 1, 0})
	require.NoError(t, err)

	raw := f.pixels(t, "raw")
	// The flat grid covers the middle 75% of the texture.
	first := red(raw, 12, 12)
	assert.InDelta(t, Neutral, first, 1e-4)
	for y := 12; y < texSize-12; y++ {
		for x := 12; x < texSize-12; x++ {
			if v := red(raw, x, y); math.Abs(float64(v-first)) > 1e-6 {
				t.Fatalf("Raw intensity at (%d,%d) is %f, want uniform %f", x, y, v, first)
			}
		}
	}
	assert.Zero(t, red(raw, 2, 2), "texels outside the projected grid receive no light")

	blurred := f.pixels(t, "blurred")
	assert.InDelta(t, first, red(blurred, texSize/2, texSize/2), 1e-6, "blurring a uniform field keeps it uniform")
}

func TestGrazingLightStaysFinite(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sim.InjectDisturbance(mgl32.Vec2{0.5, 0.5}, 0.2, 0.05))
	d := f.sim.Delta()
	require.NoError(t, f.sim.RecomputeNormals(d[0], d[1]))

	for _, light := range []mgl32.Vec3{{1, 0, 0}, {1, -1, 0}, {0, 0, 0}, {0, -1, 0}} {
		_, err := f.gen.Update(f.sim.Current(), light)
		require.NoError(t, err)
		for _, which := range []string{"raw", "blurred"} {
			for i, v := range f.pixels(t, which) {
				if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) || v < 0 || v > MaxIntensity {
					t.Fatalf("Light %v: %s texel %d is %f", light, which, i/4, v)
				}
			}
		}
	}
}

func TestBumpFocusesLight(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sim.InjectDisturbance(mgl32.Vec2{0.5, 0.5}, 0.1, 0.05))
	d := f.sim.Delta()
	require.NoError(t, f.sim.RecomputeNormals(d[0], d[1]))

	_, err := f.gen.Update(f.sim.Current(), mgl32.Vec3{0, 1, 0})
	require.NoError(t, err)

	var peak float32
	raw := f.pixels(t, "raw")
	for i := 0; i < len(raw); i += 4 {
		if raw[i] > peak {
			peak = raw[i]
		}
	}
	assert.Greater(t, peak, Neutral*1.1, "a raised bump should concentrate light somewhere")
}

func TestSphereCastsShadow(t *testing.T) {
	f := newFixture(t)
	f.gen.SetOccluder(mgl32.Vec3{0, -0.5, 0}, 0.25)
	_, err := f.gen.Update(f.sim.Current(), mgl32.Vec3{0, 1, 0})
	require.NoError(t, err)

	raw := f.pixels(t, "raw")
	at := func(x, y int) (r, g float32) {
		i := (y*texSize + x) * 4
		return raw[i], raw[i+1]
	}
	r, g := at(texSize/2, texSize/2)
	assert.Less(t, g, r*0.1, "floor under the sphere should be shadowed")

	r, g = at(48, 48)
	assert.InDelta(t, r, g, 1e-3, "floor far from the sphere should be lit")
}

func TestIntensityGuards(t *testing.T) {
	assert.Equal(t, Neutral, Intensity(1, 1, 1))
	assert.Equal(t, MaxIntensity, Intensity(1, 0, 1))
	assert.Equal(t, float32(0), Intensity(float32(math.NaN()), 1, 1))
	assert.Equal(t, MaxIntensity, Intensity(1, float32(math.NaN()), 1))
	assert.Equal(t, float32(0), Intensity(-1, 1, 1))
}

func TestSphereShadowWithoutSphere(t *testing.T) {
	assert.Equal(t, float32(1), SphereShadow(mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, -1, 0}, mgl32.Vec3{}, 0))
}

func TestOverlappingLightIsClampedAfterSumming(t *testing.T) {
	f := newFixture(t)
	sums := make([]float32, texSize*texSize*4)
	for i := range sums {
		sums[i] = float32(i%7) * MaxIntensity * 0.5
	}
	sums[0] = float32(math.NaN())
	require.NoError(t, f.dev.Upload(f.gen.accum, sums))
	require.NoError(t, f.dev.Run(gpu.Pass{
		Name:   "caustics-clamp",
		Inputs: []gpu.Input{{Name: "source", Target: f.gen.accum}},
		Kernel: clampKernel,
	}, f.gen.raw))

	raw := f.pixels(t, "raw")
	assert.Zero(t, raw[0], "NaN sums become dark")
	for i, v := range raw {
		want := float32(math.Min(float64(sums[i]), float64(MaxIntensity)))
		if i == 0 {
			want = 0
		}
		if v != want {
			t.Fatalf("Texel component %d is %f, want %f", i, v, want)
		}
	}
}
