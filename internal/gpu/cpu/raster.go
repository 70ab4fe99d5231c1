package cpu

import (
	"fmt"
	"math"

	"GopherWater/internal/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// Window coordinates are snapped to 1/subpixel of a pixel so edge functions
// are exact integers. Shared edges then cover every pixel exactly once.
const subpixel = 256

const (
	nearW     = 1e-5
	guardBand = 4
)

type clipVertex struct {
	pos   mgl32.Vec4
	world mgl32.Vec3
	vary  []float32
}

type rasterVertex struct {
	x, y   int64
	fx, fy float32
	z      float32
	invW   float32
	clip   float32 // clip distance premultiplied by invW
	vary   []float32
	raw    []float32
}

type triangle struct {
	v                      [3]rasterVertex
	area                   int64
	front                  bool
	minX, maxX, minY, maxY int
	dx, dy                 []float32
}

// Draw rasterizes a mesh pass following OpenGL rules: counter-clockwise
// front faces, pixel-centre sampling and the top-left fill convention.
func (d *Device) Draw(p gpu.MeshPass, dst gpu.Target) error {
	if err := d.Err(); err != nil {
		return err
	}
	if p.Mesh == nil || p.VertexFn == nil || p.FragmentFn == nil {
		return fmt.Errorf("%w: mesh pass %q is incomplete", gpu.ErrResource, p.Name)
	}
	out, err := d.lookup(dst)
	if err != nil {
		return err
	}
	if out.spec.Cube {
		return fmt.Errorf("%w: mesh pass %q cannot render into cube %q", gpu.ErrResource, p.Name, out.spec.Name)
	}
	in, err := d.samplers(p.Name, p.Inputs, dst)
	if err != nil {
		return err
	}

	verts := make([]gpu.VertexOut, len(p.Mesh.Positions))
	if err := d.forBands(len(verts), func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			verts[i] = p.VertexFn(p.Mesh.Positions[i], in)
		}
	}); err != nil {
		return err
	}

	w, h := out.Size()
	tris := d.setup(p, verts, w, h)
	if len(tris) == 0 {
		return nil
	}

	depth := p.DepthTest && out.depth != nil
	return d.forBands(h, func(y0, y1 int) {
		frag := &gpu.Fragment{Varyings: make([]float32, p.Varyings)}
		for i := range tris {
			rasterize(&tris[i], y0, y1, w, out, depth, p, frag, in)
		}
	})
}

func (d *Device) setup(p gpu.MeshPass, verts []gpu.VertexOut, w, h int) []triangle {
	tris := make([]triangle, 0, p.Mesh.Triangles())
	poly := make([]clipVertex, 0, 9)
	scratch := make([]clipVertex, 0, 9)

	for t := 0; t+2 < len(p.Mesh.Indices); t += 3 {
		poly = poly[:0]
		for k := 0; k < 3; k++ {
			idx := p.Mesh.Indices[t+k]
			if int(idx) >= len(verts) {
				poly = poly[:0]
				break
			}
			v := verts[idx]
			poly = append(poly, clipVertex{pos: v.Position, world: v.World, vary: v.Varyings})
		}
		if len(poly) != 3 {
			continue
		}
		poly, scratch = clipPolygon(poly, scratch)
		if len(poly) < 3 {
			continue
		}

		rv := make([]rasterVertex, len(poly))
		for i, c := range poly {
			rv[i] = project(c, p, w, h)
		}
		for i := 1; i+1 < len(rv); i++ {
			if tri, ok := buildTriangle(rv[0], rv[i], rv[i+1], p, w, h); ok {
				tris = append(tris, tri)
			}
		}
	}
	return tris
}

// clipPolygon keeps the part of the polygon with w > nearW and inside a
// guard band around the viewport, so fixed-point coordinates stay small.
func clipPolygon(poly, scratch []clipVertex) ([]clipVertex, []clipVertex) {
	planes := [...]func(v mgl32.Vec4) float32{
		func(v mgl32.Vec4) float32 { return v[3] - nearW },
		func(v mgl32.Vec4) float32 { return guardBand*v[3] - v[0] },
		func(v mgl32.Vec4) float32 { return guardBand*v[3] + v[0] },
		func(v mgl32.Vec4) float32 { return guardBand*v[3] - v[1] },
		func(v mgl32.Vec4) float32 { return guardBand*v[3] + v[1] },
	}
	for _, dist := range planes {
		inside := true
		for _, v := range poly {
			if dist(v.pos) < 0 {
				inside = false
				break
			}
		}
		if inside {
			continue
		}
		scratch = scratch[:0]
		for i := range poly {
			a, b := poly[i], poly[(i+1)%len(poly)]
			da, db := dist(a.pos), dist(b.pos)
			if da >= 0 {
				scratch = append(scratch, a)
			}
			if (da >= 0) != (db >= 0) {
				scratch = append(scratch, lerpClip(a, b, da/(da-db)))
			}
		}
		poly, scratch = scratch, poly
		if len(poly) < 3 {
			return poly, scratch
		}
	}
	return poly, scratch
}

func lerpClip(a, b clipVertex, t float32) clipVertex {
	out := clipVertex{
		pos:   a.pos.Add(b.pos.Sub(a.pos).Mul(t)),
		world: a.world.Add(b.world.Sub(a.world).Mul(t)),
		vary:  make([]float32, len(a.vary)),
	}
	for i := range out.vary {
		out.vary[i] = a.vary[i] + (b.vary[i]-a.vary[i])*t
	}
	return out
}

func project(c clipVertex, p gpu.MeshPass, w, h int) rasterVertex {
	invW := 1 / c.pos[3]
	wx := (c.pos[0]*invW*0.5 + 0.5) * float32(w)
	wy := (c.pos[1]*invW*0.5 + 0.5) * float32(h)
	rv := rasterVertex{
		x:    int64(math.Round(float64(wx) * subpixel)),
		y:    int64(math.Round(float64(wy) * subpixel)),
		z:    c.pos[2]*invW*0.5 + 0.5,
		invW: invW,
		raw:  c.vary,
		vary: make([]float32, len(c.vary)),
	}
	rv.fx = float32(rv.x) / subpixel
	rv.fy = float32(rv.y) / subpixel
	for i, v := range c.vary {
		rv.vary[i] = v * invW
	}
	if p.ClipPlane != nil {
		pl := *p.ClipPlane
		rv.clip = (pl[0]*c.world[0] + pl[1]*c.world[1] + pl[2]*c.world[2] + pl[3]) * invW
	}
	return rv
}

func edge(ax, ay, bx, by, px, py int64) int64 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

func buildTriangle(a, b, c rasterVertex, p gpu.MeshPass, w, h int) (triangle, bool) {
	area := edge(a.x, a.y, b.x, b.y, c.x, c.y)
	if area == 0 {
		return triangle{}, false
	}
	front := area > 0
	switch p.Cull {
	case gpu.CullBack:
		if !front {
			return triangle{}, false
		}
	case gpu.CullFront:
		if front {
			return triangle{}, false
		}
	}
	if area < 0 {
		b, c = c, b
		area = -area
	}

	tri := triangle{v: [3]rasterVertex{a, b, c}, area: area, front: front}
	minX := min3(a.x, b.x, c.x)
	maxX := max3(a.x, b.x, c.x)
	minY := min3(a.y, b.y, c.y)
	maxY := max3(a.y, b.y, c.y)
	tri.minX = clampInt(int(floorDiv(minX, subpixel)), 0, w-1)
	tri.maxX = clampInt(int(floorDiv(maxX, subpixel)), 0, w-1)
	tri.minY = clampInt(int(floorDiv(minY, subpixel)), 0, h-1)
	tri.maxY = clampInt(int(floorDiv(maxY, subpixel)), 0, h-1)

	n := len(a.raw)
	tri.dx = make([]float32, n)
	tri.dy = make([]float32, n)
	x10, y10 := b.fx-a.fx, b.fy-a.fy
	x20, y20 := c.fx-a.fx, c.fy-a.fy
	fa := x10*y20 - x20*y10
	for i := 0; i < n; i++ {
		d10 := b.raw[i] - a.raw[i]
		d20 := c.raw[i] - a.raw[i]
		tri.dx[i] = (d10*y20 - d20*y10) / fa
		tri.dy[i] = (d20*x10 - d10*x20) / fa
	}
	return tri, true
}

func isTopLeft(a, b *rasterVertex) bool {
	dy := b.y - a.y
	return dy < 0 || (dy == 0 && b.x-a.x < 0)
}

func rasterize(t *triangle, y0, y1, w int, out *texture, depth bool, p gpu.MeshPass, frag *gpu.Fragment, in []gpu.Sampler) {
	if t.maxY < y0 || t.minY >= y1 {
		return
	}
	a, b, c := &t.v[0], &t.v[1], &t.v[2]
	var bias [3]int64
	if !isTopLeft(b, c) {
		bias[0] = -1
	}
	if !isTopLeft(c, a) {
		bias[1] = -1
	}
	if !isTopLeft(a, b) {
		bias[2] = -1
	}
	inv := 1 / float32(t.area)

	frag.Front = t.front
	frag.DX, frag.DY = t.dx, t.dy

	ys, ye := t.minY, t.maxY
	if ys < y0 {
		ys = y0
	}
	if ye > y1-1 {
		ye = y1 - 1
	}
	for py := ys; py <= ye; py++ {
		cy := int64(py)*subpixel + subpixel/2
		for px := t.minX; px <= t.maxX; px++ {
			cx := int64(px)*subpixel + subpixel/2
			e0 := edge(b.x, b.y, c.x, c.y, cx, cy)
			e1 := edge(c.x, c.y, a.x, a.y, cx, cy)
			e2 := edge(a.x, a.y, b.x, b.y, cx, cy)
			if e0+bias[0] < 0 || e1+bias[1] < 0 || e2+bias[2] < 0 {
				continue
			}
			l0, l1, l2 := float32(e0)*inv, float32(e1)*inv, float32(e2)*inv

			z := l0*a.z + l1*b.z + l2*c.z
			if z < 0 || z > 1 {
				continue
			}
			idx := py*w + px
			if depth && z >= out.depth[idx] {
				continue
			}
			invW := l0*a.invW + l1*b.invW + l2*c.invW
			if p.ClipPlane != nil && (l0*a.clip+l1*b.clip+l2*c.clip)/invW < 0 {
				continue
			}
			for i := range frag.Varyings {
				frag.Varyings[i] = (l0*a.vary[i] + l1*b.vary[i] + l2*c.vary[i]) / invW
			}
			frag.X, frag.Y = px, py

			color, keep := p.FragmentFn(frag, in)
			if !keep {
				continue
			}
			if depth {
				out.depth[idx] = z
			}
			o := idx * 4
			if p.Blend == gpu.BlendAdditive {
				color = color.Add(mgl32.Vec4{out.pix[o], out.pix[o+1], out.pix[o+2], out.pix[o+3]})
			}
			out.store(out.pix, o, color)
		}
	}
}

func floorDiv(v, d int64) int64 {
	q := v / d
	if v%d != 0 && v < 0 {
		q--
	}
	return q
}

func min3(a, b, c int64) int64 {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func max3(a, b, c int64) int64 {
	if b > a {
		a = b
	}
	if c > a {
		a = c
	}
	return a
}
