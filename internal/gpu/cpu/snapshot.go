package cpu

import (
	"fmt"
	"image"
	"image/color"

	"GopherWater/internal/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// Pixels returns a copy of a 2D target's texels (RGBA, row 0 = v 0).
func (d *Device) Pixels(t gpu.Target) ([]float32, error) {
	tex, err := d.lookup(t)
	if err != nil {
		return nil, err
	}
	if tex.spec.Cube {
		return nil, fmt.Errorf("%w: %q is a cube target", gpu.ErrResource, tex.spec.Name)
	}
	out := make([]float32, len(tex.pix))
	copy(out, tex.pix)
	return out, nil
}

// Texel reads a single texel without copying the whole target.
func (d *Device) Texel(t gpu.Target, x, y int) (mgl32.Vec4, error) {
	tex, err := d.lookup(t)
	if err != nil {
		return mgl32.Vec4{}, err
	}
	return fetch(tex.pix, tex.spec.Width, tex.spec.Height, x, y), nil
}

// Image converts a target into an 8-bit image with the top row first.
func (d *Device) Image(t gpu.Target) (*image.RGBA, error) {
	tex, err := d.lookup(t)
	if err != nil {
		return nil, err
	}
	w, h := tex.Size()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := h - 1 - y
		for x := 0; x < w; x++ {
			c := fetch(tex.pix, w, h, x, row)
			img.SetRGBA(x, y, color.RGBA{
				R: to8(c[0]),
				G: to8(c[1]),
				B: to8(c[2]),
				A: 255,
			})
		}
	}
	return img, nil
}

func to8(v float32) uint8 {
	return uint8(unorm8(v)*255 + 0.5)
}
