// Package compositor draws the final image: sky, tiled pool walls, the
// sphere and the displaced water surface lit by caustics, reflection and
// ray-traced refraction.
package compositor

import (
	"errors"
	"fmt"

	"GopherWater/internal/gpu"
	"GopherWater/internal/logger"
	"GopherWater/internal/reflection"
	"GopherWater/internal/renderer"
	"GopherWater/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

const (
	sphereRings    = 16
	sphereSegments = 32
)

var ErrIncompleteFrame = errors.New("compositor: frame is missing inputs")

// Tint replaces the fixed water filter colors with a depth-graded mix.
type Tint struct {
	Enabled bool
	Shallow mgl32.Vec3
	Deep    mgl32.Vec3
}

// Frame is everything one composite reads. Targets are only valid for the
// frame they were produced in.
type Frame struct {
	Camera     *renderer.Camera
	Water      gpu.Target
	Caustics   gpu.Target
	Sky        gpu.Target
	Reflection reflection.Result

	SphereCenter mgl32.Vec3
	SphereRadius float32

	Light scene.Light
	Tint  Tint
}

func (f *Frame) validate() error {
	switch {
	case f.Camera == nil:
		return fmt.Errorf("%w: camera", ErrIncompleteFrame)
	case f.Water == nil:
		return fmt.Errorf("%w: water", ErrIncompleteFrame)
	case f.Caustics == nil:
		return fmt.Errorf("%w: caustics", ErrIncompleteFrame)
	case f.Sky == nil:
		return fmt.Errorf("%w: sky", ErrIncompleteFrame)
	}
	return nil
}

type Compositor struct {
	dev    gpu.Device
	grid   *gpu.Mesh
	pool   *gpu.Mesh
	sphere *gpu.Mesh
	tiles  gpu.Target
}

// New builds the pool and sphere meshes and the tile texture. grid is the
// water mesh shared with the caustics generator.
func New(dev gpu.Device, grid *gpu.Mesh, tileSeed int64) (*Compositor, error) {
	if grid == nil || len(grid.Indices) == 0 {
		return nil, fmt.Errorf("compositor: %w: empty water grid", gpu.ErrResource)
	}
	tiles, err := scene.NewTileTexture(dev, tileSeed)
	if err != nil {
		return nil, fmt.Errorf("compositor: %w", err)
	}
	c := &Compositor{
		dev:    dev,
		grid:   grid,
		pool:   scene.PoolBox(),
		sphere: scene.SphereMesh(sphereRings, sphereSegments),
		tiles:  tiles,
	}
	logger.Log.Info("Compositor ready",
		zap.Int("waterTriangles", grid.Triangles()),
		zap.Int("sphereTriangles", c.sphere.Triangles()))
	return c, nil
}

func (c *Compositor) Release() {
	if c.tiles != nil {
		c.dev.Release(c.tiles)
		c.tiles = nil
	}
}

// Render composites f into dst.
func (c *Compositor) Render(f Frame, dst gpu.Target) error {
	if err := f.validate(); err != nil {
		return err
	}
	if err := c.dev.Clear(dst, mgl32.Vec4{0, 0, 0, 1}); err != nil {
		return fmt.Errorf("compositor: clear: %w", err)
	}
	view := reflection.View{Camera: f.Camera}
	if err := c.drawEnvironment(&f, view, dst); err != nil {
		return err
	}

	above := WaterAboveMaterial
	if f.Reflection.Texture == nil {
		above = above.Without(CapReflection)
	}
	if err := c.drawWater(&f, view, above, gpu.CullBack, dst); err != nil {
		return err
	}
	return c.drawWater(&f, view, WaterBelowMaterial, gpu.CullFront, dst)
}

// Environment exposes everything but the water to the reflection pass.
func (c *Compositor) Environment(f *Frame) reflection.Scene {
	return environment{c: c, f: f}
}

type environment struct {
	c *Compositor
	f *Frame
}

func (e environment) DrawEnvironment(view reflection.View, dst gpu.Target) error {
	if err := e.f.validate(); err != nil {
		return err
	}
	return e.c.drawEnvironment(e.f, view, dst)
}

func (c *Compositor) drawEnvironment(f *Frame, view reflection.View, dst gpu.Target) error {
	if err := c.drawSky(f, view, dst); err != nil {
		return err
	}
	if err := c.drawPool(f, view, dst); err != nil {
		return err
	}
	return c.drawSphere(f, view, dst)
}

// material applies the per-frame and per-view capabilities.
func material(m Material, f *Frame, view reflection.View) Material {
	if f.Tint.Enabled {
		m = m.With(CapTint)
	}
	if view.ClipPlane != nil {
		m = m.With(CapClip)
	}
	return m
}

func cull(mode gpu.CullMode, view reflection.View) gpu.CullMode {
	if !view.Mirrored {
		return mode
	}
	switch mode {
	case gpu.CullBack:
		return gpu.CullFront
	case gpu.CullFront:
		return gpu.CullBack
	}
	return mode
}

func (c *Compositor) shadingFor(m Material, f *Frame, view reflection.View) *shading {
	sun := scene.SafeLight(f.Light.Direction)
	return &shading{
		caps:         m.Caps,
		eye:          view.Camera.Position,
		light:        sun,
		refracted:    scene.RefractedLight(sun),
		lightColor:   f.Light.Color.Mul(f.Light.Intensity),
		specular:     f.Light.Specular,
		sphereCenter: f.SphereCenter,
		sphereRadius: f.SphereRadius,
		shallow:      f.Tint.Shallow,
		deep:         f.Tint.Deep,
	}
}

func (c *Compositor) uniforms(s *shading, view reflection.View) gpu.Uniforms {
	u := gpu.Uniforms{
		"viewProj":     view.Camera.GetViewProjection(),
		"eye":          s.eye,
		"light":        s.light,
		"lightColor":   s.lightColor,
		"specular":     s.specular,
		"sphereCenter": s.sphereCenter,
		"sphereRadius": s.sphereRadius,
	}
	if s.has(CapTint) {
		u["shallowColor"] = s.shallow
		u["deepColor"] = s.deep
	}
	return u
}

func (c *Compositor) inputs(m Material, f *Frame) []gpu.Input {
	in := []gpu.Input{
		{Name: "water", Target: f.Water},
		{Name: "caustics", Target: f.Caustics},
		{Name: "tiles", Target: c.tiles},
		{Name: "sky", Target: f.Sky},
	}
	if m.Has(CapReflection) {
		in = append(in, gpu.Input{Name: "reflection", Target: f.Reflection.Texture})
	}
	return in
}

func (c *Compositor) drawSky(f *Frame, view reflection.View, dst gpu.Target) error {
	m := material(SkyMaterial, f, view).Without(CapClip)
	s := c.shadingFor(m, f, view)
	inverse := view.Camera.GetViewProjection().Inv()
	u := c.uniforms(s, view)
	u["inverseViewProj"] = inverse

	w, h := dst.Size()
	err := c.dev.Run(gpu.Pass{
		Name:     m.Name,
		Fragment: m.FragmentSource(),
		Uniforms: u,
		Inputs:   c.inputs(m, f),
		Kernel: func(x, y int, in []gpu.Sampler) mgl32.Vec4 {
			ndc := mgl32.Vec4{
				(float32(x)+0.5)/float32(w)*2 - 1,
				(float32(y)+0.5)/float32(h)*2 - 1,
				1, 1,
			}
			far := inverse.Mul4x1(ndc)
			dir := far.Vec3().Mul(1 / far.W()).Sub(s.eye).Normalize()
			return finish(in[inSky].SampleCube(dir).Vec3())
		},
	}, dst)
	if err != nil {
		return fmt.Errorf("compositor: sky: %w", err)
	}
	return nil
}

func (c *Compositor) drawMesh(m Material, f *Frame, view reflection.View, mesh *gpu.Mesh, mode gpu.CullMode,
	u gpu.Uniforms, varyings int, vertex gpu.VertexFunc, fragment gpu.FragmentFunc, dst gpu.Target) error {
	pass := gpu.MeshPass{
		Name:       m.Name,
		Vertex:     m.VertexSource(),
		Fragment:   m.FragmentSource(),
		Uniforms:   u,
		Inputs:     c.inputs(m, f),
		Mesh:       mesh,
		Cull:       cull(mode, view),
		DepthTest:  true,
		Varyings:   varyings,
		VertexFn:   vertex,
		FragmentFn: fragment,
	}
	if m.Has(CapClip) {
		pass.ClipPlane = view.ClipPlane
	}
	if err := c.dev.Draw(pass, dst); err != nil {
		return fmt.Errorf("compositor: %s: %w", m.Name, err)
	}
	return nil
}

// poolY stretches the unit box so its bottom is the floor and its top the rim.
func poolY(y float32) float32 {
	return ((y+1)*(7.0/12.0) - 1) * scene.PoolHeight
}

func worldVarying(vp mgl32.Mat4, world mgl32.Vec3) gpu.VertexOut {
	return gpu.VertexOut{
		Position: vp.Mul4x1(world.Vec4(1)),
		World:    world,
		Varyings: []float32{world[0], world[1], world[2]},
	}
}

func varyingWorld(f *gpu.Fragment) mgl32.Vec3 {
	return mgl32.Vec3{f.Varyings[0], f.Varyings[1], f.Varyings[2]}
}

func (c *Compositor) drawPool(f *Frame, view reflection.View, dst gpu.Target) error {
	m := material(PoolMaterial, f, view)
	s := c.shadingFor(m, f, view)
	vp := view.Camera.GetViewProjection()
	return c.drawMesh(m, f, view, c.pool, gpu.CullBack, c.uniforms(s, view), 3,
		func(p mgl32.Vec3, _ []gpu.Sampler) gpu.VertexOut {
			return worldVarying(vp, mgl32.Vec3{p.X(), poolY(p.Y()), p.Z()})
		},
		func(frag *gpu.Fragment, in []gpu.Sampler) (mgl32.Vec4, bool) {
			p := varyingWorld(frag)
			return finish(s.submerged(in, p, s.wallColor(in, p))), true
		}, dst)
}

func (c *Compositor) drawSphere(f *Frame, view reflection.View, dst gpu.Target) error {
	if !(f.SphereRadius > 0) {
		return nil
	}
	frustum := view.Camera.CalculateFrustum()
	if !frustum.IntersectsSphere(f.SphereCenter, f.SphereRadius) {
		return nil
	}
	m := material(SphereMaterial, f, view)
	s := c.shadingFor(m, f, view)
	vp := view.Camera.GetViewProjection()
	return c.drawMesh(m, f, view, c.sphere, gpu.CullBack, c.uniforms(s, view), 3,
		func(p mgl32.Vec3, _ []gpu.Sampler) gpu.VertexOut {
			return worldVarying(vp, f.SphereCenter.Add(p.Mul(f.SphereRadius)))
		},
		func(frag *gpu.Fragment, in []gpu.Sampler) (mgl32.Vec4, bool) {
			p := varyingWorld(frag)
			return finish(s.submerged(in, p, s.sphereColor(in, p))), true
		}, dst)
}

func (c *Compositor) drawWater(f *Frame, view reflection.View, base Material, mode gpu.CullMode, dst gpu.Target) error {
	m := material(base, f, view)
	s := c.shadingFor(m, f, view)
	vp := view.Camera.GetViewProjection()
	refl := f.Reflection.Matrix
	u := c.uniforms(s, view)
	u["reflectionMatrix"] = refl

	below := base.Name == WaterBelowMaterial.Name
	return c.drawMesh(m, f, view, c.grid, mode, u, 7,
		func(p mgl32.Vec3, in []gpu.Sampler) gpu.VertexOut {
			h := in[inWater].Sample(p.X()*0.5+0.5, p.Z()*0.5+0.5)[0]
			world := mgl32.Vec3{p.X(), p.Y() + h, p.Z()}
			rc := refl.Mul4x1(world.Vec4(1))
			return gpu.VertexOut{
				Position: vp.Mul4x1(world.Vec4(1)),
				World:    world,
				Varyings: []float32{world[0], world[1], world[2], rc[0], rc[1], rc[2], rc[3]},
			}
		},
		func(frag *gpu.Fragment, in []gpu.Sampler) (mgl32.Vec4, bool) {
			p := varyingWorld(frag)
			if below {
				return finish(s.waterBelow(in, p)), true
			}
			v := frag.Varyings
			return finish(s.waterAbove(in, p, mgl32.Vec4{v[3], v[4], v[5], v[6]})), true
		}, dst)
}
