package cpu

import (
	"math"

	"GopherWater/internal/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// texture is a host-memory target. Row 0 is v = 0, matching OpenGL.
type texture struct {
	spec     gpu.TargetSpec
	pix      []float32
	faces    [6][]float32
	depth    []float32
	released bool
}

func newTexture(spec gpu.TargetSpec) *texture {
	t := &texture{spec: spec}
	n := spec.Width * spec.Height * 4
	if spec.Cube {
		for i := range t.faces {
			t.faces[i] = make([]float32, n)
		}
	} else {
		t.pix = make([]float32, n)
	}
	if spec.Depth {
		t.depth = make([]float32, spec.Width*spec.Height)
		for i := range t.depth {
			t.depth[i] = 1
		}
	}
	return t
}

func (t *texture) Spec() gpu.TargetSpec { return t.spec }

func (t *texture) Size() (int, int) { return t.spec.Width, t.spec.Height }

// store writes a texel, applying the precision of the target format.
func (t *texture) store(pix []float32, i int, c mgl32.Vec4) {
	if t.spec.Format == gpu.FormatRGBA8 {
		for k := 0; k < 4; k++ {
			pix[i+k] = unorm8(c[k])
		}
		return
	}
	pix[i], pix[i+1], pix[i+2], pix[i+3] = c[0], c[1], c[2], c[3]
}

func unorm8(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 1
	}
	return float32(math.Round(float64(v)*255)) / 255
}

// sampler reads one plane of a texture.
type sampler struct {
	tex *texture
	pix []float32
}

func (t *texture) sampler() *sampler {
	return &sampler{tex: t, pix: t.pix}
}

func (s *sampler) Size() (int, int) { return s.tex.Size() }

func (s *sampler) Fetch(x, y int) mgl32.Vec4 {
	return fetch(s.pix, s.tex.spec.Width, s.tex.spec.Height, x, y)
}

func (s *sampler) Sample(u, v float32) mgl32.Vec4 {
	return sample2D(s.pix, s.tex.spec, u, v)
}

func (s *sampler) SampleCube(dir mgl32.Vec3) mgl32.Vec4 {
	if !s.tex.spec.Cube {
		return mgl32.Vec4{}
	}
	face, fs, ft := gpu.CubeFace(dir)
	return sample2D(s.tex.faces[face], s.tex.spec, fs, ft)
}

func fetch(pix []float32, w, h, x, y int) mgl32.Vec4 {
	x = clampInt(x, 0, w-1)
	y = clampInt(y, 0, h-1)
	i := (y*w + x) * 4
	return mgl32.Vec4{pix[i], pix[i+1], pix[i+2], pix[i+3]}
}

func sample2D(pix []float32, spec gpu.TargetSpec, u, v float32) mgl32.Vec4 {
	w, h := spec.Width, spec.Height
	if isBad(u) || isBad(v) {
		return mgl32.Vec4{}
	}
	if spec.Filter == gpu.FilterNearest {
		return fetch(pix, w, h, int(math.Floor(float64(u*float32(w)))), int(math.Floor(float64(v*float32(h)))))
	}

	x := u*float32(w) - 0.5
	y := v*float32(h) - 0.5
	x0f := float32(math.Floor(float64(x)))
	y0f := float32(math.Floor(float64(y)))
	fx, fy := x-x0f, y-y0f
	x0, y0 := int(x0f), int(y0f)

	c00 := fetch(pix, w, h, x0, y0)
	c10 := fetch(pix, w, h, x0+1, y0)
	c01 := fetch(pix, w, h, x0, y0+1)
	c11 := fetch(pix, w, h, x0+1, y0+1)

	var out mgl32.Vec4
	for k := 0; k < 4; k++ {
		a := c00[k] + (c10[k]-c00[k])*fx
		b := c01[k] + (c11[k]-c01[k])*fx
		out[k] = a + (b-a)*fy
	}
	return out
}

func isBad(v float32) bool {
	f := float64(v)
	return math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > 1e6
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
