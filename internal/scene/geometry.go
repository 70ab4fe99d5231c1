package scene

import (
	"fmt"
	"math"

	"GopherWater/internal/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// Triangles are wound counter-clockwise as seen by the intended viewer:
// the water grid faces +y, the pool faces inward and the sphere outward.

// WaterGrid is a detail×detail quad grid over [-1, 1]² at y = 0. Vertex
// shaders derive the heightfield uv as position.xz*0.5 + 0.5.
func WaterGrid(detail int) *gpu.Mesh {
	if detail < 1 {
		detail = 1
	}
	m := &gpu.Mesh{Name: fmt.Sprintf("water-grid-%d", detail)}
	n := detail + 1
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			x := float32(i)/float32(detail)*2 - 1
			z := float32(j)/float32(detail)*2 - 1
			m.Positions = append(m.Positions, mgl32.Vec3{x, 0, z})
		}
	}
	for j := 0; j < detail; j++ {
		for i := 0; i < detail; i++ {
			v00 := uint32(j*n + i)
			v10 := v00 + 1
			v01 := v00 + uint32(n)
			v11 := v01 + 1
			m.Indices = append(m.Indices, v00, v01, v10, v10, v01, v11)
		}
	}
	return m
}

// PoolBox is the unit cube [-1, 1]³ without its top face. The vertex stage
// remaps y onto the pool height.
func PoolBox() *gpu.Mesh {
	m := &gpu.Mesh{Name: "pool"}
	quad := func(corner, u, v mgl32.Vec3) {
		base := uint32(len(m.Positions))
		m.Positions = append(m.Positions, corner, corner.Add(u), corner.Add(v), corner.Add(u).Add(v))
		m.Indices = append(m.Indices, base, base+1, base+2, base+1, base+3, base+2)
	}
	x, y, z := mgl32.Vec3{2, 0, 0}, mgl32.Vec3{0, 2, 0}, mgl32.Vec3{0, 0, 2}
	quad(mgl32.Vec3{-1, -1, -1}, z, x) // floor
	quad(mgl32.Vec3{-1, -1, -1}, y, z) // -x
	quad(mgl32.Vec3{1, -1, -1}, z, y)  // +x
	quad(mgl32.Vec3{-1, -1, -1}, x, y) // -z
	quad(mgl32.Vec3{-1, -1, 1}, y, x)  // +z
	return m
}

// SphereMesh is a unit UV sphere. Draws scale it by the sphere radius.
func SphereMesh(rings, segments int) *gpu.Mesh {
	if rings < 2 {
		rings = 2
	}
	if segments < 3 {
		segments = 3
	}
	m := &gpu.Mesh{Name: fmt.Sprintf("sphere-%dx%d", rings, segments)}
	for i := 0; i <= rings; i++ {
		theta := math.Pi * float64(i) / float64(rings)
		for j := 0; j <= segments; j++ {
			phi := 2 * math.Pi * float64(j) / float64(segments)
			m.Positions = append(m.Positions, mgl32.Vec3{
				float32(math.Sin(theta) * math.Cos(phi)),
				float32(math.Cos(theta)),
				float32(math.Sin(theta) * math.Sin(phi)),
			})
		}
	}
	row := uint32(segments + 1)
	for i := 0; i < rings; i++ {
		for j := 0; j < segments; j++ {
			a := uint32(i)*row + uint32(j)
			b := a + row
			c := a + 1
			d := b + 1
			m.Indices = append(m.Indices, a, c, b, c, d, b)
		}
	}
	return m
}
