// camera.go
package renderer

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	MaxPitch    = 89.0
	MinDistance = 1.5
	MaxDistance = 12.0
)

// Camera orbits Target. AngleX is the pitch and AngleY the yaw, both in
// degrees; a negative pitch looks down on the pool. Position and Up are
// derived by Orbit and may be set directly for cameras that do not orbit,
// such as the mirrored reflection camera.
type Camera struct {
	// HOT DATA - Accessed every frame for view/projection calculations
	Position   mgl32.Vec3
	Target     mgl32.Vec3
	Up         mgl32.Vec3
	Projection mgl32.Mat4

	// COLD DATA - Orbit state and input handling
	AngleX, AngleY float32
	Distance       float32
	Sensitivity    float32
	Fov            float32
	Near           float32
	Far            float32
	AspectRatio    float32
}

type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

type Frustum struct {
	Planes [6]Plane
}

func NewDefaultCamera(width, height int) *Camera {
	camera := Camera{
		Target:      mgl32.Vec3{0, -0.5, 0},
		Up:          mgl32.Vec3{0, 1, 0},
		AngleX:      -25,
		AngleY:      -200.5,
		Distance:    4,
		Sensitivity: 0.5,
		Fov:         45.0,
		Near:        0.01,
		Far:         100.0,
		AspectRatio: aspect(width, height),
	}
	camera.Orbit()
	camera.UpdateProjection()
	return &camera
}

func aspect(width, height int) float32 {
	if width <= 0 || height <= 0 {
		return 1
	}
	return float32(width) / float32(height)
}

func (c *Camera) UpdateProjection() {
	c.Projection = mgl32.Perspective(mgl32.DegToRad(c.Fov), c.AspectRatio, c.Near, c.Far)
}

func (c *Camera) SetFov(fov float32) {
	c.Fov = fov
	c.UpdateProjection()
}

func (c *Camera) SetAspectRatio(width, height int) {
	c.AspectRatio = aspect(width, height)
	c.UpdateProjection()
}

// Orbit recomputes Position from the orbit angles and distance.
func (c *Camera) Orbit() {
	c.AngleX = mgl32.Clamp(c.AngleX, -MaxPitch, MaxPitch)
	pitch := float64(mgl32.DegToRad(c.AngleX))
	yaw := float64(mgl32.DegToRad(c.AngleY))
	d := float64(c.Distance)
	offset := mgl32.Vec3{
		float32(d * math.Cos(pitch) * math.Sin(yaw)),
		float32(-d * math.Sin(pitch)),
		float32(d * math.Cos(pitch) * math.Cos(yaw)),
	}
	c.Position = c.Target.Add(offset)
	c.Up = mgl32.Vec3{0, 1, 0}
}

// ProcessMouseMovement turns a pointer drag in pixels into an orbit.
func (c *Camera) ProcessMouseMovement(xoffset, yoffset float32) {
	c.AngleY -= xoffset * c.Sensitivity
	c.AngleX -= yoffset * c.Sensitivity
	c.Orbit()
}

// Zoom moves the camera along its view axis, keeping it outside the pool.
func (c *Camera) Zoom(delta float32) {
	c.Distance = mgl32.Clamp(c.Distance-delta, MinDistance, MaxDistance)
	c.Orbit()
}

func (c *Camera) GetViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

func (c *Camera) GetProjectionMatrix() mgl32.Mat4 {
	return c.Projection
}

func (c *Camera) GetViewProjection() mgl32.Mat4 {
	return c.Projection.Mul4(c.GetViewMatrix())
}

// Front is the unit view direction.
func (c *Camera) Front() mgl32.Vec3 {
	return c.Target.Sub(c.Position).Normalize()
}

// Underwater reports whether the eye is below the rest plane y = waterY.
func (c *Camera) Underwater(waterY float32) bool {
	return c.Position.Y() < waterY
}

func (c *Camera) CalculateFrustum() Frustum {
	var frustum Frustum
	vp := c.GetViewProjection()

	// Left Plane
	frustum.Planes[0] = Plane{
		Normal:   mgl32.Vec3{vp[3] + vp[0], vp[7] + vp[4], vp[11] + vp[8]},
		Distance: vp[15] + vp[12],
	}

	// Right Plane
	frustum.Planes[1] = Plane{
		Normal:   mgl32.Vec3{vp[3] - vp[0], vp[7] - vp[4], vp[11] - vp[8]},
		Distance: vp[15] - vp[12],
	}

	// Bottom Plane
	frustum.Planes[2] = Plane{
		Normal:   mgl32.Vec3{vp[3] + vp[1], vp[7] + vp[5], vp[11] + vp[9]},
		Distance: vp[15] + vp[13],
	}

	// Top Plane
	frustum.Planes[3] = Plane{
		Normal:   mgl32.Vec3{vp[3] - vp[1], vp[7] - vp[5], vp[11] - vp[9]},
		Distance: vp[15] - vp[13],
	}

	// Near Plane
	frustum.Planes[4] = Plane{
		Normal:   mgl32.Vec3{vp[3] + vp[2], vp[7] + vp[6], vp[11] + vp[10]},
		Distance: vp[15] + vp[14],
	}

	// Far Plane
	frustum.Planes[5] = Plane{
		Normal:   mgl32.Vec3{vp[3] - vp[2], vp[7] - vp[6], vp[11] - vp[10]},
		Distance: vp[15] - vp[14],
	}

	for i := 0; i < 6; i++ {
		length := frustum.Planes[i].Normal.Len()
		frustum.Planes[i].Normal = frustum.Planes[i].Normal.Mul(1.0 / length)
		frustum.Planes[i].Distance /= length
	}

	return frustum
}

func (p *Plane) DistanceToPoint(point mgl32.Vec3) float32 {
	return p.Normal.Dot(point) + p.Distance
}

func (f *Frustum) IntersectsSphere(center mgl32.Vec3, radius float32) bool {
	for _, plane := range f.Planes {
		if plane.DistanceToPoint(center) < -radius {
			return false
		}
	}
	return true
}
