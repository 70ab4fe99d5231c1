package heightfield

import (
	"math"

	"GopherWater/internal/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// texelUV is the centre of texel (x, y) in a size×size grid.
func texelUV(x, y, size int) mgl32.Vec2 {
	return mgl32.Vec2{(float32(x) + 0.5) / float32(size), (float32(y) + 0.5) / float32(size)}
}

// RaisedCosine is the drop profile: 1 at the centre, 0 from radius outward.
func RaisedCosine(dist, radius float32) float32 {
	t := 1 - dist/radius
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return 0.5 - 0.5*float32(math.Cos(math.Pi*float64(t)))
}

func dropKernel(center mgl32.Vec2, radius, strength float32) gpu.Kernel {
	return func(x, y int, in []gpu.Sampler) mgl32.Vec4 {
		w, _ := in[0].Size()
		info := in[0].Fetch(x, y)
		info[0] += RaisedCosine(center.Sub(texelUV(x, y, w)).Len(), radius) * strength
		return info
	}
}

func propagateKernel(delta mgl32.Vec2, damping float32) gpu.Kernel {
	return func(x, y int, in []gpu.Sampler) mgl32.Vec4 {
		w, _ := in[0].Size()
		uv := texelUV(x, y, w)
		s := in[0]
		info := s.Fetch(x, y)
		average := (s.Sample(uv[0]-delta[0], uv[1])[0] +
			s.Sample(uv[0]+delta[0], uv[1])[0] +
			s.Sample(uv[0], uv[1]-delta[1])[0] +
			s.Sample(uv[0], uv[1]+delta[1])[0]) * 0.25
		info[1] += (average - info[0]) * 2
		info[1] *= damping
		info[0] += info[1]
		return info
	}
}

func normalKernel(delta mgl32.Vec2) gpu.Kernel {
	return func(x, y int, in []gpu.Sampler) mgl32.Vec4 {
		w, _ := in[0].Size()
		uv := texelUV(x, y, w)
		s := in[0]
		info := s.Fetch(x, y)
		dx := mgl32.Vec3{delta[0], s.Sample(uv[0]+delta[0], uv[1])[0] - info[0], 0}
		dy := mgl32.Vec3{0, s.Sample(uv[0], uv[1]+delta[1])[0] - info[0], delta[1]}
		n := dy.Cross(dx).Normalize()
		info[2], info[3] = n[0], n[2]
		return info
	}
}

// VolumeInSphere is the bump-shaped displaced volume a sphere contributes
// to the water column at uv.
func VolumeInSphere(uv mgl32.Vec2, center mgl32.Vec3, radius float32) float32 {
	toCenter := mgl32.Vec3{uv[0]*2 - 1, 0, uv[1]*2 - 1}.Sub(center)
	t := float64(toCenter.Len() / radius)
	dy := float32(math.Exp(-math.Pow(t*1.5, 6)))
	ymin := min32(0, center[1]-dy)
	ymax := min32(max32(0, center[1]+dy), ymin+2*dy)
	return (ymax - ymin) * 0.1
}

func sphereKernel(oldCenter, newCenter mgl32.Vec3, radius float32) gpu.Kernel {
	return func(x, y int, in []gpu.Sampler) mgl32.Vec4 {
		w, _ := in[0].Size()
		uv := texelUV(x, y, w)
		info := in[0].Fetch(x, y)
		info[0] += VolumeInSphere(uv, oldCenter, radius)
		info[0] -= VolumeInSphere(uv, newCenter, radius)
		return info
	}
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
