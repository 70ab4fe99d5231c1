package renderer

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// RayEpsilon is the smallest magnitude a ray component may have before
	// it is nudged away from zero.
	RayEpsilon float32 = 1e-6
	// NoHit is the distance reported when a ray misses.
	NoHit float32 = 1e6
)

// Ray represents a ray in 3D space
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Nudge keeps v at least RayEpsilon away from zero, preserving its sign.
func Nudge(v float32) float32 {
	if v >= 0 && v < RayEpsilon {
		return RayEpsilon
	}
	if v < 0 && v > -RayEpsilon {
		return -RayEpsilon
	}
	return v
}

// RayIntersectSphere tests if a ray intersects a sphere
// Returns: (intersected, distance, intersection point)
func RayIntersectSphere(ray Ray, sphereCenter mgl32.Vec3, radius float32) (bool, float32, mgl32.Vec3) {
	oc := ray.Origin.Sub(sphereCenter)

	a := ray.Direction.Dot(ray.Direction)
	b := 2.0 * oc.Dot(ray.Direction)
	c := oc.Dot(oc) - radius*radius

	discriminant := b*b - 4*a*c
	if discriminant < 0 || a == 0 {
		return false, 0, mgl32.Vec3{}
	}

	sqrtDisc := float32(math.Sqrt(float64(discriminant)))
	t1 := (-b - sqrtDisc) / (2 * a)
	t2 := (-b + sqrtDisc) / (2 * a)

	// Return the closest intersection (smallest positive t)
	var t float32
	if t1 > 0 {
		t = t1
	} else if t2 > 0 {
		t = t2
	} else {
		return false, 0, mgl32.Vec3{}
	}

	return true, t, ray.At(t)
}

// SphereHit is the shading variant of RayIntersectSphere: the near root
// only, NoHit when it is missing or behind the origin.
func SphereHit(ray Ray, center mgl32.Vec3, radius float32) float32 {
	toSphere := ray.Origin.Sub(center)
	a := ray.Direction.Dot(ray.Direction)
	b := 2 * toSphere.Dot(ray.Direction)
	c := toSphere.Dot(toSphere) - radius*radius
	discriminant := b*b - 4*a*c
	if discriminant > 0 && a > 0 {
		t := (-b - float32(math.Sqrt(float64(discriminant)))) / (2 * a)
		if t > 0 {
			return t
		}
	}
	return NoHit
}

// RayIntersectBox returns the slab entry and exit distances of an axis
// aligned box. The ray misses when near > far. Zero direction components
// are nudged so the result is always finite.
func RayIntersectBox(ray Ray, boxMin, boxMax mgl32.Vec3) (near, far float32) {
	near, far = float32(math.Inf(-1)), float32(math.Inf(1))
	for i := 0; i < 3; i++ {
		d := Nudge(ray.Direction[i])
		t1 := (boxMin[i] - ray.Origin[i]) / d
		t2 := (boxMax[i] - ray.Origin[i]) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > near {
			near = t1
		}
		if t2 < far {
			far = t2
		}
	}
	return near, far
}

// RayIntersectPlane intersects the horizontal plane y = height. Rays
// parallel to the plane, or pointing away from it, miss.
func RayIntersectPlane(ray Ray, height float32) (bool, float32, mgl32.Vec3) {
	d := ray.Direction.Y()
	if d > -RayEpsilon && d < RayEpsilon {
		return false, 0, mgl32.Vec3{}
	}
	t := (height - ray.Origin.Y()) / d
	if t <= 0 {
		return false, 0, mgl32.Vec3{}
	}
	return true, t, ray.At(t)
}

// ScreenToRay converts a screen position (origin top-left, in pixels) to a
// world space ray through the near and far planes.
func ScreenToRay(camera *Camera, screenX, screenY float32, windowWidth, windowHeight int) (Ray, bool) {
	if windowWidth <= 0 || windowHeight <= 0 {
		return Ray{}, false
	}
	ndcX := 2*screenX/float32(windowWidth) - 1
	ndcY := 1 - 2*screenY/float32(windowHeight)

	inv := camera.GetViewProjection().Inv()
	near := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, -1, 1})
	far := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, 1, 1})
	if near.W() == 0 || far.W() == 0 {
		return Ray{}, false
	}
	dir := far.Vec3().Mul(1 / far.W()).Sub(near.Vec3().Mul(1 / near.W()))
	if dir.Len() == 0 || math.IsNaN(float64(dir.Len())) {
		return Ray{}, false
	}
	return Ray{Origin: camera.Position, Direction: dir.Normalize()}, true
}
