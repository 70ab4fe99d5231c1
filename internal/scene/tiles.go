package scene

import (
	"fmt"

	"GopherWater/internal/gpu"

	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	TileTextureSize = 256
	tilesPerSide    = 8
	groutWidth      = 0.06
)

var (
	tileColor  = mgl32.Vec3{0.82, 0.88, 0.9}
	groutColor = mgl32.Vec3{0.45, 0.5, 0.52}
)

// TilePixels draws the pool tile pattern: square tiles with grout lines,
// mottled with perlin noise. seed makes the pattern reproducible.
func TilePixels(size int, seed int64) []float32 {
	p := perlin.NewPerlin(2, 2, 3, seed)
	pix := make([]float32, size*size*4)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			u := (float32(x) + 0.5) / float32(size) * tilesPerSide
			v := (float32(y) + 0.5) / float32(size) * tilesPerSide
			fu, fv := u-float32(int(u)), v-float32(int(v))

			c := tileColor
			if fu < groutWidth || fv < groutWidth {
				c = groutColor
			}
			n := float32(p.Noise2D(float64(x)*0.05, float64(y)*0.05))
			c = c.Mul(1 + 0.08*n)

			i := (y*size + x) * 4
			pix[i] = mgl32.Clamp(c[0], 0, 1)
			pix[i+1] = mgl32.Clamp(c[1], 0, 1)
			pix[i+2] = mgl32.Clamp(c[2], 0, 1)
			pix[i+3] = 1
		}
	}
	return pix
}

// NewTileTexture uploads the tile pattern to a new RGBA8 target.
func NewTileTexture(dev gpu.Device, seed int64) (gpu.Target, error) {
	t, err := dev.NewTarget(gpu.TargetSpec{
		Name:   "tiles",
		Width:  TileTextureSize,
		Height: TileTextureSize,
		Format: gpu.FormatRGBA8,
		Filter: gpu.FilterLinear,
	})
	if err != nil {
		return nil, fmt.Errorf("scene: create tiles: %w", err)
	}
	if err := dev.Upload(t, TilePixels(TileTextureSize, seed)); err != nil {
		dev.Release(t)
		return nil, fmt.Errorf("scene: upload tiles: %w", err)
	}
	return t, nil
}
