package gpu

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Uniforms maps GLSL uniform names to float32, int32, bool, mgl32.Vec2,
// mgl32.Vec3, mgl32.Vec4 or mgl32.Mat4 values.
type Uniforms map[string]any

// Input binds a target to a sampler uniform. The CPU device hands samplers
// to kernels in the same order as Inputs.
type Input struct {
	Name   string
	Target Target
}

// Sampler is the host-side view of an input target. All lookups clamp to edge.
type Sampler interface {
	Size() (width, height int)
	// Fetch returns texel (x, y) with coordinates clamped into range.
	Fetch(x, y int) mgl32.Vec4
	// Sample filters at uv using the target's filter mode.
	Sample(u, v float32) mgl32.Vec4
	// SampleCube looks up a cube target along dir.
	SampleCube(dir mgl32.Vec3) mgl32.Vec4
}

// Kernel computes one output texel of a full-screen pass.
type Kernel func(x, y int, in []Sampler) mgl32.Vec4

// Pass is a full-screen pass: every texel of the destination is written.
type Pass struct {
	Name     string
	Fragment string
	Uniforms Uniforms
	Inputs   []Input
	Kernel   Kernel
}

// Mesh is an indexed triangle list. Only positions are stored; passes derive
// everything else from them in the vertex stage.
type Mesh struct {
	Name      string
	Positions []mgl32.Vec3
	Indices   []uint32
}

func (m *Mesh) Triangles() int {
	return len(m.Indices) / 3
}

type CullMode int

const (
	CullNone CullMode = iota
	CullBack
	CullFront
)

type BlendMode int

const (
	BlendNone BlendMode = iota
	BlendAdditive
)

// VertexOut is the result of the vertex stage: clip-space position, the
// world position used for the clip plane and the varyings to interpolate.
type VertexOut struct {
	Position mgl32.Vec4
	World    mgl32.Vec3
	Varyings []float32
}

type VertexFunc func(p mgl32.Vec3, in []Sampler) VertexOut

// Fragment carries interpolated varyings and their screen-space derivatives.
// Derivatives are affine across the triangle, matching dFdx/dFdy exactly
// for orthographic passes.
type Fragment struct {
	X, Y     int
	Front    bool
	Varyings []float32
	DX, DY   []float32
}

// FragmentFunc shades a fragment. Returning false discards it.
type FragmentFunc func(f *Fragment, in []Sampler) (mgl32.Vec4, bool)

type MeshPass struct {
	Name      string
	Vertex    string
	Fragment  string
	Uniforms  Uniforms
	Inputs    []Input
	Mesh      *Mesh
	Cull      CullMode
	Blend     BlendMode
	DepthTest bool
	// ClipPlane keeps geometry with dot(vec4(world, 1), plane) >= 0.
	ClipPlane *mgl32.Vec4

	Varyings   int
	VertexFn   VertexFunc
	FragmentFn FragmentFunc
}

// Device executes passes against targets it allocated.
type Device interface {
	Name() string
	NewTarget(spec TargetSpec) (Target, error)
	Upload(t Target, rgba []float32) error
	UploadCube(t Target, faces [6][]float32) error
	// Clear sets every texel to color and resets depth to the far plane.
	Clear(dst Target, color mgl32.Vec4) error
	Run(p Pass, dst Target) error
	Draw(p MeshPass, dst Target) error
	Screen() Target
	Resize(width, height int) error
	Release(t Target)
	Stats() PoolStats
	// Err returns the sticky fatal error, if any.
	Err() error
	Close() error
}
