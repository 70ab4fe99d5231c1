package compositor

import (
	"math"

	"GopherWater/internal/gpu"
	"GopherWater/internal/renderer"
	"GopherWater/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
)

// Sampler slots shared by every compositor pass. The reflection slot is
// only bound for materials with CapReflection.
const (
	inWater = iota
	inCaustics
	inTiles
	inSky
	inReflection
)

const (
	noHit                = renderer.NoHit
	reflectionDistortion = 0.03
	refineSteps          = 3
	refineScale          = 0.005
	sunExponent          = 5000
)

var (
	aboveWaterColor = mgl32.Vec3{0.25, 1.0, 1.25}
	underWaterColor = mgl32.Vec3{0.4, 0.9, 1.0}
	sunTint         = mgl32.Vec3{10, 8, 6}
	refractTint     = mgl32.Vec3{0.8, 1.0, 1.1}
)

// shading is the host counterpart of the fragment library: one value per
// pass, holding the uniforms the GLSL side receives.
type shading struct {
	caps Capability

	eye        mgl32.Vec3
	light      mgl32.Vec3
	refracted  mgl32.Vec3
	lightColor mgl32.Vec3
	specular   float32

	sphereCenter mgl32.Vec3
	sphereRadius float32

	shallow, deep mgl32.Vec3
}

func (s *shading) has(c Capability) bool { return s.caps&c == c }

func mul(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func pow32(x, y float32) float32 {
	return float32(math.Pow(float64(x), float64(y)))
}

func fract(x float32) float32 {
	return x - float32(math.Floor(float64(x)))
}

func (s *shading) waterHeight(in []gpu.Sampler, p mgl32.Vec3) float32 {
	if !s.has(CapWaterSampling) {
		return 0
	}
	return in[inWater].Sample(p.X()*0.5+0.5, p.Z()*0.5+0.5)[0]
}

func surfaceNormal(water gpu.Sampler, p mgl32.Vec3) mgl32.Vec3 {
	u, v := p.X()*0.5+0.5, p.Z()*0.5+0.5
	info := water.Sample(u, v)
	for i := 0; i < refineSteps; i++ {
		u += info[2] * refineScale
		v += info[3] * refineScale
		info = water.Sample(u, v)
	}
	ny := float32(math.Sqrt(math.Max(0, float64(1-info[2]*info[2]-info[3]*info[3]))))
	return mgl32.Vec3{info[2], ny, info[3]}
}

func (s *shading) wallColor(in []gpu.Sampler, p mgl32.Vec3) mgl32.Vec3 {
	var tile mgl32.Vec4
	var normal mgl32.Vec3
	switch {
	case abs32(p.X()) > 0.999:
		tile = in[inTiles].Sample(fract(p.Y()*0.5+1), fract(p.Z()*0.5+0.5))
		normal = mgl32.Vec3{-p.X(), 0, 0}
	case abs32(p.Z()) > 0.999:
		tile = in[inTiles].Sample(fract(p.Y()*0.5+1), fract(p.X()*0.5+0.5))
		normal = mgl32.Vec3{0, 0, -p.Z()}
	default:
		tile = in[inTiles].Sample(p.X()*0.5+0.5, p.Z()*0.5+0.5)
		normal = scene.Up
	}

	scale := 0.5 / max32(p.Len(), 0.1)
	if s.sphereRadius > 0 {
		scale *= 1 - 0.9/pow32(p.Sub(s.sphereCenter).Len()/s.sphereRadius, 4)
	}

	toLight := s.refracted.Mul(-1)
	diffuse := s.lightColor.Mul(max32(0, toLight.Dot(normal)))
	var lit mgl32.Vec3
	if s.has(CapCaustics) && p.Y() < s.waterHeight(in, p) {
		uv := scene.CausticUV(p, s.refracted)
		caustic := in[inCaustics].Sample(uv[0], uv[1])
		lit = diffuse.Mul(caustic[1] * 2)
	} else {
		lit = diffuse.Mul(scene.RimShadow(p, toLight) * 0.5)
	}
	return mul(tile.Vec3(), lit.Add(mgl32.Vec3{scale, scale, scale}))
}

func (s *shading) sphereColor(in []gpu.Sampler, p mgl32.Vec3) mgl32.Vec3 {
	r := s.sphereRadius
	k := float32(0.5)
	k *= 1 - 0.9/pow32((1+r-abs32(p.X()))/r, 3)
	k *= 1 - 0.9/pow32((1+r-abs32(p.Z()))/r, 3)
	k *= 1 - 0.9/pow32((p.Y()+1+r)/r, 3)

	normal := p.Sub(s.sphereCenter).Mul(1 / r)
	diffuse := s.lightColor.Mul(max32(0, s.refracted.Mul(-1).Dot(normal)) * 0.5)
	if s.has(CapCaustics) && p.Y() < s.waterHeight(in, p) {
		uv := scene.CausticUV(p, s.refracted)
		diffuse = diffuse.Mul(in[inCaustics].Sample(uv[0], uv[1])[0] * 4)
	}
	return mgl32.Vec3{k, k, k}.Add(diffuse)
}

func (s *shading) waterFilter(waterColor mgl32.Vec3, pathLength float32) mgl32.Vec3 {
	if !s.has(CapTint) {
		return waterColor
	}
	t := mgl32.Clamp(pathLength/2, 0, 1)
	return s.shallow.Add(s.deep.Sub(s.shallow).Mul(t))
}

func (s *shading) sunHighlight(ray mgl32.Vec3) mgl32.Vec3 {
	k := pow32(max32(0, s.light.Dot(ray)), sunExponent) * s.specular
	return mul(sunTint, s.lightColor).Mul(k)
}

// surfaceRayColor traces ray from a point on the water surface against the
// sphere, the pool and the sky.
func (s *shading) surfaceRayColor(in []gpu.Sampler, origin, ray, waterColor mgl32.Vec3) mgl32.Vec3 {
	var color mgl32.Vec3
	var pathLength float32
	if q := renderer.SphereHit(renderer.Ray{Origin: origin, Direction: ray}, s.sphereCenter, s.sphereRadius); q < noHit {
		color = s.sphereColor(in, origin.Add(ray.Mul(q)))
		pathLength = q
	} else {
		_, far := scene.IntersectPool(origin, ray)
		hit := origin.Add(ray.Mul(far))
		pathLength = far
		if ray.Y() < 0 || hit.Y() < scene.RimHeight {
			color = s.wallColor(in, hit)
		} else {
			color = in[inSky].SampleCube(ray).Vec3().Add(s.sunHighlight(ray))
		}
	}
	if ray.Y() < 0 {
		color = mul(color, s.waterFilter(waterColor, pathLength))
	}
	return color
}

func fresnel(base float32, normal, incoming mgl32.Vec3) float32 {
	k := mgl32.Clamp(1-normal.Dot(incoming.Mul(-1)), 0, 1)
	return base + (1-base)*k*k*k
}

func (s *shading) waterAbove(in []gpu.Sampler, p mgl32.Vec3, reflCoord mgl32.Vec4) mgl32.Vec3 {
	normal := surfaceNormal(in[inWater], p)
	incoming := p.Sub(s.eye).Normalize()
	reflected := scene.Reflect(incoming, normal)
	refracted := scene.Refract(incoming, normal, scene.IORAir/scene.IORWater)
	f := fresnel(0.25, normal, incoming)

	below := s.surfaceRayColor(in, p, refracted, aboveWaterColor)
	var above mgl32.Vec3
	if s.has(CapReflection) && reflCoord.W() > 1e-6 {
		u := reflCoord.X()/reflCoord.W() + normal.X()*reflectionDistortion
		v := reflCoord.Y()/reflCoord.W() + normal.Z()*reflectionDistortion
		above = in[inReflection].Sample(u, v).Vec3().Add(s.sunHighlight(reflected))
	} else {
		above = s.surfaceRayColor(in, p, reflected, aboveWaterColor)
	}
	return below.Add(above.Sub(below).Mul(f))
}

func (s *shading) waterBelow(in []gpu.Sampler, p mgl32.Vec3) mgl32.Vec3 {
	normal := surfaceNormal(in[inWater], p).Mul(-1)
	incoming := p.Sub(s.eye).Normalize()
	reflected := scene.Reflect(incoming, normal)
	refracted := scene.Refract(incoming, normal, scene.IORWater/scene.IORAir)
	f := fresnel(0.5, normal, incoming)

	reflectedColor := s.surfaceRayColor(in, p, reflected, underWaterColor)
	refractedColor := mul(s.surfaceRayColor(in, p, refracted, mgl32.Vec3{1, 1, 1}), refractTint)
	return reflectedColor.Add(refractedColor.Sub(reflectedColor).Mul((1 - f) * refracted.Len()))
}

// submerged tints surface colors below the local water height.
func (s *shading) submerged(in []gpu.Sampler, p, color mgl32.Vec3) mgl32.Vec3 {
	if s.has(CapWaterSampling) && p.Y() < s.waterHeight(in, p) {
		return mul(color, underWaterColor.Mul(1.2))
	}
	return color
}

// finish replaces NaN with zero and clamps to [0, 1].
func finish(c mgl32.Vec3) mgl32.Vec4 {
	out := mgl32.Vec4{0, 0, 0, 1}
	for i, v := range c {
		if v != v {
			v = 0
		}
		out[i] = mgl32.Clamp(v, 0, 1)
	}
	return out
}

func abs32(v float32) float32 { return float32(math.Abs(float64(v))) }

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
