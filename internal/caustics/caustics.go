// Package caustics turns the water surface into a light intensity map on
// the pool floor. Each grid vertex is refracted twice, once through a flat
// surface and once through the displaced one; the ratio of the projected
// triangle areas is how much the surface focuses light there.
package caustics

import (
	"fmt"
	"math"

	"GopherWater/internal/gpu"
	"GopherWater/internal/logger"
	"GopherWater/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

const (
	// Neutral is the intensity under a flat surface.
	Neutral float32 = 0.2
	// MaxIntensity caps the intensity of every caustics texel, after
	// overlapping triangles have been summed.
	MaxIntensity float32 = 4
	// MinArea keeps the area ratio finite where triangles collapse.
	MinArea float32 = 1e-8
)

var blurWeights = [5]float32{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16}

type Generator struct {
	dev  gpu.Device
	grid *gpu.Mesh
	size int

	accum, raw, blurred, out gpu.Target

	sphereCenter mgl32.Vec3
	sphereRadius float32
}

// New allocates the size×size caustics targets. grid is the water mesh
// whose vertices sample the heightfield.
func New(dev gpu.Device, grid *gpu.Mesh, size int) (*Generator, error) {
	if grid == nil || len(grid.Indices) == 0 {
		return nil, fmt.Errorf("caustics: %w: empty water grid", gpu.ErrResource)
	}
	g := &Generator{dev: dev, grid: grid, size: size}
	var undo gpu.Unwind
	for _, slot := range []struct {
		name string
		dst  *gpu.Target
	}{{"caustics-accum", &g.accum}, {"caustics-raw", &g.raw}, {"caustics-blur", &g.blurred}, {"caustics", &g.out}} {
		t, err := dev.NewTarget(gpu.TargetSpec{
			Name:   slot.name,
			Width:  size,
			Height: size,
			Format: gpu.FormatRGBA16F,
			Filter: gpu.FilterLinear,
		})
		if err != nil {
			undo.Unwind()
			return nil, fmt.Errorf("caustics: create target: %w", err)
		}
		undo.Release(dev, t)
		*slot.dst = t
	}
	undo.Discard()
	logger.Log.Info("Caustics ready", zap.Int("size", size), zap.Int("triangles", grid.Triangles()))
	return g, nil
}

// SetOccluder makes the sphere cast a shadow into the caustics. A zero
// radius disables the shadow.
func (g *Generator) SetOccluder(center mgl32.Vec3, radius float32) {
	g.sphereCenter, g.sphereRadius = center, radius
}

// Update rebuilds the caustics for the current water state and light and
// returns the blurred texture. R holds the intensity and G the intensity
// with the sphere shadow applied.
func (g *Generator) Update(water gpu.Target, light mgl32.Vec3) (gpu.Target, error) {
	sun := scene.SafeLight(light)
	refracted := scene.RefractedLight(sun)

	if err := g.dev.Clear(g.accum, mgl32.Vec4{}); err != nil {
		return nil, fmt.Errorf("caustics: clear: %w", err)
	}
	err := g.dev.Draw(gpu.MeshPass{
		Name:     "caustics",
		Vertex:   causticsVertex,
		Fragment: causticsFragment,
		Uniforms: gpu.Uniforms{
			"light":        sun,
			"sphereCenter": g.sphereCenter,
			"sphereRadius": g.sphereRadius,
			"neutral":      Neutral,
			"maxIntensity": MaxIntensity,
		},
		Inputs:     []gpu.Input{{Name: "water", Target: water}},
		Mesh:       g.grid,
		Blend:      gpu.BlendAdditive,
		Varyings:   6,
		VertexFn:   vertexStage(sun, refracted),
		FragmentFn: fragmentStage(refracted, g.sphereCenter, g.sphereRadius),
	}, g.accum)
	if err != nil {
		return nil, fmt.Errorf("caustics: draw: %w", err)
	}

	// Folded triangles overlap and sum past the cap under additive blend.
	err = g.dev.Run(gpu.Pass{
		Name:     "caustics-clamp",
		Fragment: clampFragment,
		Uniforms: gpu.Uniforms{"maxIntensity": MaxIntensity},
		Inputs:   []gpu.Input{{Name: "source", Target: g.accum}},
		Kernel:   clampKernel,
	}, g.raw)
	if err != nil {
		return nil, fmt.Errorf("caustics: clamp: %w", err)
	}

	delta := 1 / float32(g.size)
	if err := g.blur("caustics-blur-x", g.raw, g.blurred, mgl32.Vec2{delta, 0}, 1, 0); err != nil {
		return nil, err
	}
	if err := g.blur("caustics-blur-y", g.blurred, g.out, mgl32.Vec2{0, delta}, 0, 1); err != nil {
		return nil, err
	}
	return g.out, nil
}

func (g *Generator) blur(name string, src, dst gpu.Target, delta mgl32.Vec2, dx, dy int) error {
	err := g.dev.Run(gpu.Pass{
		Name:     name,
		Fragment: blurFragment,
		Uniforms: gpu.Uniforms{"delta": delta},
		Inputs:   []gpu.Input{{Name: "source", Target: src}},
		Kernel:   blurKernel(dx, dy),
	}, dst)
	if err != nil {
		return fmt.Errorf("caustics: %s: %w", name, err)
	}
	return nil
}

// Texture is the most recent blurred result.
func (g *Generator) Texture() gpu.Target { return g.out }

// Raw is the unblurred intensity of the most recent Update.
func (g *Generator) Raw() gpu.Target { return g.raw }

func (g *Generator) Release() {
	for _, t := range []*gpu.Target{&g.accum, &g.raw, &g.blurred, &g.out} {
		if *t != nil {
			g.dev.Release(*t)
			*t = nil
		}
	}
}

func project(origin, ray, refracted mgl32.Vec3) mgl32.Vec3 {
	_, far := scene.IntersectPool(origin, ray)
	origin = origin.Add(ray.Mul(far))
	t := (-origin.Y() - scene.PoolHeight) / refracted.Y()
	return origin.Add(refracted.Mul(t))
}

func vertexStage(sun, refracted mgl32.Vec3) gpu.VertexFunc {
	eta := scene.IORAir / scene.IORWater
	return func(p mgl32.Vec3, in []gpu.Sampler) gpu.VertexOut {
		info := in[0].Sample(p.X()*0.5+0.5, p.Z()*0.5+0.5)
		bx, bz := info[2]*0.5, info[3]*0.5
		ny := float32(math.Sqrt(math.Max(0, float64(1-bx*bx-bz*bz))))
		ray := scene.Refract(sun.Mul(-1), mgl32.Vec3{bx, ny, bz}, eta)
		if ray.Y() > scene.MaxRefractedY {
			ray[1] = scene.MaxRefractedY
		}

		oldPos := project(p, refracted, refracted)
		newPos := project(p.Add(mgl32.Vec3{0, info[0], 0}), ray, refracted)
		return gpu.VertexOut{
			Position: mgl32.Vec4{
				0.75 * (newPos.X() + refracted.X()/refracted.Y()),
				0.75 * (newPos.Z() + refracted.Z()/refracted.Y()),
				0, 1,
			},
			World:    newPos,
			Varyings: []float32{oldPos[0], oldPos[1], oldPos[2], newPos[0], newPos[1], newPos[2]},
		}
	}
}

func length3(v []float32) float32 {
	return float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
}

// Intensity is the area ratio scaled to Neutral and attenuated by rim,
// guarded against collapsed triangles and NaN.
func Intensity(oldArea, newArea, rim float32) float32 {
	if !(newArea >= MinArea) {
		newArea = MinArea
	}
	v := oldArea / newArea * Neutral * rim
	if v != v {
		return 0
	}
	return mgl32.Clamp(v, 0, MaxIntensity)
}

// SphereShadow is 0 where the sphere blocks refracted light from reaching
// floorPos and 1 where it does not.
func SphereShadow(floorPos, refracted, center mgl32.Vec3, radius float32) float32 {
	if !(radius > 0) {
		return 1
	}
	dir := center.Sub(floorPos).Mul(1 / radius)
	area := dir.Cross(refracted)
	dist := dir.Dot(refracted.Mul(-1))
	s := 1 + (area.Dot(area)-1)/(0.05+dist*0.025)
	s = mgl32.Clamp(float32(1/(1+math.Exp(-float64(s)))), 0, 1)
	k := mgl32.Clamp(dist*2, 0, 1)
	return 1 + (s-1)*k
}

func fragmentStage(refracted, center mgl32.Vec3, radius float32) gpu.FragmentFunc {
	toLight := refracted.Mul(-1)
	return func(f *gpu.Fragment, _ []gpu.Sampler) (mgl32.Vec4, bool) {
		oldArea := length3(f.DX[0:3]) * length3(f.DY[0:3])
		newArea := length3(f.DX[3:6]) * length3(f.DY[3:6])
		newPos := mgl32.Vec3{f.Varyings[3], f.Varyings[4], f.Varyings[5]}

		intensity := Intensity(oldArea, newArea, scene.RimShadow(newPos, toLight))
		shadow := SphereShadow(newPos, refracted, center, radius)
		return mgl32.Vec4{intensity, intensity * shadow, 0, 0}, true
	}
}

func blurKernel(dx, dy int) gpu.Kernel {
	return func(x, y int, in []gpu.Sampler) mgl32.Vec4 {
		var sum mgl32.Vec4
		for k, w := range blurWeights {
			o := k - 2
			sum = sum.Add(in[0].Fetch(x+o*dx, y+o*dy).Mul(w))
		}
		return sum
	}
}

func clampKernel(x, y int, in []gpu.Sampler) mgl32.Vec4 {
	v := in[0].Fetch(x, y)
	for i := range v {
		if v[i] != v[i] {
			v[i] = 0
		}
		v[i] = mgl32.Clamp(v[i], 0, MaxIntensity)
	}
	return v
}
