package heightfield

import "math"

// Field is a host copy of the height and velocity channels, used for
// diagnostics. It is never produced in the live frame loop.
type Field struct {
	Size int
	H, V []float64
}

// FieldFromPixels splits RGBA texels into height and velocity.
func FieldFromPixels(size int, rgba []float32) Field {
	f := Field{Size: size, H: make([]float64, size*size), V: make([]float64, size*size)}
	for i := range f.H {
		f.H[i] = float64(rgba[i*4])
		f.V[i] = float64(rgba[i*4+1])
	}
	return f
}

// average is the clamped four-neighbour mean used by propagate.
func (f Field) average(a []float64) []float64 {
	n := f.Size
	out := make([]float64, len(a))
	at := func(x, y int) float64 {
		if x < 0 {
			x = 0
		} else if x >= n {
			x = n - 1
		}
		if y < 0 {
			y = 0
		} else if y >= n {
			y = n - 1
		}
		return a[y*n+x]
	}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			out[y*n+x] = (at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1)) * 0.25
		}
	}
	return out
}

// Energy is the conserved quadratic form of the damped scheme
//
//	E = d·hᵀLh + (1-d)·hᵀv - d·hᵀLv + d·vᵀv,  L = 2(I - Avg)
//
// which shrinks by exactly the damping factor d on every propagate step.
// Plain height or amplitude sums are not monotone: the mean height is
// conserved, and the scheme's dispersion splits a drop into components
// that travel at different speeds and later refocus into a higher peak,
// well before any ring reaches the border.
func (f Field) Energy() float64 {
	d := float64(Damping)
	avgH := f.average(f.H)
	avgV := f.average(f.V)
	var hLh, hv, hLv, vv float64
	for i := range f.H {
		lh := 2 * (f.H[i] - avgH[i])
		lv := 2 * (f.V[i] - avgV[i])
		hLh += f.H[i] * lh
		hv += f.H[i] * f.V[i]
		hLv += f.H[i] * lv
		vv += f.V[i] * f.V[i]
	}
	return d*hLh + (1-d)*hv - d*hLv + d*vv
}

func (f Field) MaxAbsHeight() float64 {
	var m float64
	for _, h := range f.H {
		m = math.Max(m, math.Abs(h))
	}
	return m
}

func (f Field) SumHeight() float64 {
	var s float64
	for _, h := range f.H {
		s += h
	}
	return s
}

// Finite reports whether every height and velocity is a real number.
func (f Field) Finite() bool {
	for i := range f.H {
		if math.IsNaN(f.H[i]) || math.IsInf(f.H[i], 0) || math.IsNaN(f.V[i]) || math.IsInf(f.V[i], 0) {
			return false
		}
	}
	return true
}
