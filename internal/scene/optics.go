package scene

import (
	"math"

	"GopherWater/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	IORAir   float32 = 1.0
	IORWater float32 = 1.333
	// PoolHeight is the depth of the pool floor below the rest plane.
	PoolHeight float32 = 1
	// RimHeight is the top of the pool walls.
	RimHeight float32 = 2.0 / 12.0
	// MinLightY keeps the light above the horizon.
	MinLightY float32 = 0.01
	// MaxRefractedY keeps refracted light pointing down.
	MaxRefractedY float32 = -1e-3
)

var (
	PoolMin = mgl32.Vec3{-1, -PoolHeight, -1}
	PoolMax = mgl32.Vec3{1, 2, 1}
	Up      = mgl32.Vec3{0, 1, 0}
)

// Refract follows GLSL refract: i and n unit length, eta the ratio of
// indices. Total internal reflection yields the zero vector.
func Refract(i, n mgl32.Vec3, eta float32) mgl32.Vec3 {
	d := n.Dot(i)
	k := 1 - eta*eta*(1-d*d)
	if k < 0 {
		return mgl32.Vec3{}
	}
	return i.Mul(eta).Sub(n.Mul(eta*d + float32(math.Sqrt(float64(k)))))
}

// Reflect follows GLSL reflect.
func Reflect(i, n mgl32.Vec3) mgl32.Vec3 {
	return i.Sub(n.Mul(2 * n.Dot(i)))
}

// SafeLight normalizes the light direction and lifts it to at least
// MinLightY above the horizon.
func SafeLight(l mgl32.Vec3) mgl32.Vec3 {
	n := l.Len()
	if !(n > 0) {
		return Up
	}
	l = l.Mul(1 / n)
	if l.Y() >= MinLightY {
		return l
	}
	xz := mgl32.Vec2{l.X(), l.Z()}
	if xz.Len() == 0 {
		return Up
	}
	xz = xz.Normalize().Mul(float32(math.Sqrt(float64(1 - MinLightY*MinLightY))))
	return mgl32.Vec3{xz[0], MinLightY, xz[1]}
}

// RefractedLight is the direction of sunlight under a flat surface.
func RefractedLight(light mgl32.Vec3) mgl32.Vec3 {
	r := Refract(SafeLight(light).Mul(-1), Up, IORAir/IORWater)
	if r.Y() > MaxRefractedY {
		r[1] = MaxRefractedY
	}
	return r
}

// IntersectPool returns the entry and exit distances of a ray through the
// pool volume.
func IntersectPool(origin, ray mgl32.Vec3) (near, far float32) {
	return renderer.RayIntersectBox(renderer.Ray{Origin: origin, Direction: ray}, PoolMin, PoolMax)
}

// CausticUV is where point looks up the caustics texture.
func CausticUV(p, refracted mgl32.Vec3) mgl32.Vec2 {
	k := p.Y() / refracted.Y()
	return mgl32.Vec2{
		0.75*(p.X()-k*refracted.X())*0.5 + 0.5,
		0.75*(p.Z()-k*refracted.Z())*0.5 + 0.5,
	}
}

// RimShadow darkens points the pool rim hides from the sun. toLight points
// from the point towards the light.
func RimShadow(p, toLight mgl32.Vec3) float32 {
	near, far := IntersectPool(p, toLight)
	x := 200 / (1 + 10*(far-near)) * (p.Y() + toLight.Y()*far - RimHeight)
	return sigmoid(x)
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

// OpticsGLSL mirrors this file for shaders.
const OpticsGLSL = `
const float IOR_AIR = 1.0;
const float IOR_WATER = 1.333;
const float poolHeight = 1.0;
const float rimHeight = 2.0 / 12.0;
const vec3 poolMin = vec3(-1.0, -1.0, -1.0);
const vec3 poolMax = vec3(1.0, 2.0, 1.0);

float nudge1(float v) {
    return abs(v) < 1e-6 ? (v < 0.0 ? -1e-6 : 1e-6) : v;
}

vec3 nudge(vec3 r) {
    return vec3(nudge1(r.x), nudge1(r.y), nudge1(r.z));
}

vec2 intersectCube(vec3 origin, vec3 ray, vec3 cubeMin, vec3 cubeMax) {
    ray = nudge(ray);
    vec3 tMin = (cubeMin - origin) / ray;
    vec3 tMax = (cubeMax - origin) / ray;
    vec3 t1 = min(tMin, tMax);
    vec3 t2 = max(tMin, tMax);
    float tNear = max(max(t1.x, t1.y), t1.z);
    float tFar = min(min(t2.x, t2.y), t2.z);
    return vec2(tNear, tFar);
}

vec3 safeLight(vec3 l) {
    float n = length(l);
    if (!(n > 0.0)) return vec3(0.0, 1.0, 0.0);
    l /= n;
    if (l.y >= 0.01) return l;
    vec2 xz = l.xz;
    if (length(xz) == 0.0) return vec3(0.0, 1.0, 0.0);
    xz = normalize(xz) * sqrt(1.0 - 0.01 * 0.01);
    return vec3(xz.x, 0.01, xz.y);
}

vec3 refractedLightDir(vec3 light) {
    vec3 r = refract(-safeLight(light), vec3(0.0, 1.0, 0.0), IOR_AIR / IOR_WATER);
    r.y = min(r.y, -1e-3);
    return r;
}

vec2 causticUV(vec3 p, vec3 refracted) {
    return 0.75 * (p.xz - p.y * refracted.xz / refracted.y) * 0.5 + 0.5;
}

float rimShadow(vec3 p, vec3 toLight) {
    vec2 t = intersectCube(p, toLight, poolMin, poolMax);
    return 1.0 / (1.0 + exp(-200.0 / (1.0 + 10.0 * (t.y - t.x)) * (p.y + toLight.y * t.y - rimHeight)));
}
`
