// Package cpu is the host-memory reference implementation of gpu.Device.
// Kernels and rasterization run row-parallel on a pond worker pool; every
// call returns only after its pass has completed, so the submission order
// seen by callers is the same as on the GL device.
package cpu

import (
	"fmt"
	"runtime"
	"sync"

	"GopherWater/internal/gpu"
	"GopherWater/internal/logger"

	"github.com/alitto/pond/v2"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

type Device struct {
	workers pond.Pool
	bands   int
	pool    *gpu.Pool
	screen  *texture

	mu   sync.Mutex
	lost error
}

type Options struct {
	// Workers bounds pass parallelism; 0 means GOMAXPROCS.
	Workers      int
	ScreenWidth  int
	ScreenHeight int
}

func New(opts Options) (*Device, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	d := &Device{
		workers: pond.NewPool(workers),
		bands:   workers * 4,
		pool:    gpu.NewPool("cpu"),
	}
	w, h := opts.ScreenWidth, opts.ScreenHeight
	if w <= 0 || h <= 0 {
		w, h = 640, 480
	}
	if err := d.Resize(w, h); err != nil {
		d.workers.StopAndWait()
		return nil, err
	}
	logger.Log.Info("CPU device ready", zap.Int("workers", workers), zap.Int("width", w), zap.Int("height", h))
	return d, nil
}

func (d *Device) Name() string { return "cpu" }

func (d *Device) NewTarget(spec gpu.TargetSpec) (gpu.Target, error) {
	if err := d.Err(); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	t := newTexture(spec)
	d.pool.Track(t)
	return t, nil
}

func (d *Device) lookup(t gpu.Target) (*texture, error) {
	tex, ok := t.(*texture)
	if !ok || tex == nil {
		return nil, fmt.Errorf("%w: target %T does not belong to the cpu device", gpu.ErrResource, t)
	}
	if tex.released {
		return nil, fmt.Errorf("%w: %q", gpu.ErrReleased, tex.spec.Name)
	}
	return tex, nil
}

func (d *Device) Upload(t gpu.Target, rgba []float32) error {
	tex, err := d.lookup(t)
	if err != nil {
		return err
	}
	if tex.spec.Cube || len(rgba) != len(tex.pix) {
		return fmt.Errorf("%w: upload of %d floats into %q", gpu.ErrResource, len(rgba), tex.spec.Name)
	}
	for i := 0; i < len(rgba); i += 4 {
		tex.store(tex.pix, i, mgl32.Vec4{rgba[i], rgba[i+1], rgba[i+2], rgba[i+3]})
	}
	return nil
}

func (d *Device) UploadCube(t gpu.Target, faces [6][]float32) error {
	tex, err := d.lookup(t)
	if err != nil {
		return err
	}
	if !tex.spec.Cube {
		return fmt.Errorf("%w: %q is not a cube target", gpu.ErrResource, tex.spec.Name)
	}
	for f := range faces {
		if len(faces[f]) != len(tex.faces[f]) {
			return fmt.Errorf("%w: cube face %d of %q has %d floats", gpu.ErrResource, f, tex.spec.Name, len(faces[f]))
		}
		copy(tex.faces[f], faces[f])
	}
	return nil
}

func (d *Device) Clear(dst gpu.Target, color mgl32.Vec4) error {
	tex, err := d.lookup(dst)
	if err != nil {
		return err
	}
	for i := 0; i < len(tex.pix); i += 4 {
		tex.store(tex.pix, i, color)
	}
	for i := range tex.depth {
		tex.depth[i] = 1
	}
	return nil
}

func (d *Device) samplers(name string, inputs []gpu.Input, dst gpu.Target) ([]gpu.Sampler, error) {
	if err := gpu.CheckFeedback(name, inputs, dst); err != nil {
		return nil, err
	}
	out := make([]gpu.Sampler, len(inputs))
	for i, in := range inputs {
		tex, err := d.lookup(in.Target)
		if err != nil {
			return nil, fmt.Errorf("pass %q input %q: %w", name, in.Name, err)
		}
		out[i] = tex.sampler()
	}
	return out, nil
}

// Run executes a full-screen kernel over every texel of dst.
func (d *Device) Run(p gpu.Pass, dst gpu.Target) error {
	if err := d.Err(); err != nil {
		return err
	}
	if p.Kernel == nil {
		return fmt.Errorf("%w: pass %q has no cpu kernel", gpu.ErrResource, p.Name)
	}
	out, err := d.lookup(dst)
	if err != nil {
		return err
	}
	if out.spec.Cube {
		return fmt.Errorf("%w: pass %q cannot render into cube %q", gpu.ErrResource, p.Name, out.spec.Name)
	}
	in, err := d.samplers(p.Name, p.Inputs, dst)
	if err != nil {
		return err
	}

	w, h := out.Size()
	return d.forBands(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				out.store(out.pix, (y*w+x)*4, p.Kernel(x, y, in))
			}
		}
	})
}

// forBands splits [0, rows) into contiguous bands and waits for all of them.
func (d *Device) forBands(rows int, fn func(y0, y1 int)) error {
	bands := d.bands
	if bands > rows {
		bands = rows
	}
	if bands <= 1 {
		fn(0, rows)
		return nil
	}
	per := (rows + bands - 1) / bands
	group := d.workers.NewGroup()
	for y0 := 0; y0 < rows; y0 += per {
		y0 := y0
		y1 := y0 + per
		if y1 > rows {
			y1 = rows
		}
		group.Submit(func() { fn(y0, y1) })
	}
	return group.Wait()
}

func (d *Device) Screen() gpu.Target { return d.screen }

func (d *Device) Resize(width, height int) error {
	if d.screen != nil && d.screen.spec.Width == width && d.screen.spec.Height == height {
		return nil
	}
	spec := gpu.TargetSpec{Name: "screen", Width: width, Height: height, Format: gpu.FormatRGBA8, Depth: true}
	if err := spec.Validate(); err != nil {
		return err
	}
	d.screen = newTexture(spec)
	return nil
}

func (d *Device) Release(t gpu.Target) {
	tex, ok := t.(*texture)
	if !ok || tex == nil || tex.released {
		return
	}
	if d.pool.Untrack(tex) {
		tex.released = true
		tex.pix, tex.depth = nil, nil
		tex.faces = [6][]float32{}
	}
}

func (d *Device) Stats() gpu.PoolStats { return d.pool.Stats() }

func (d *Device) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lost
}

// Lose simulates a context loss: every live target is invalidated and all
// later calls fail with gpu.ErrContextLost.
func (d *Device) Lose() {
	d.mu.Lock()
	d.lost = gpu.ErrContextLost
	d.mu.Unlock()
	for _, t := range d.pool.Live() {
		d.Release(t)
	}
	logger.Log.Warn("CPU device context lost")
}

func (d *Device) Close() error {
	d.pool.LogStats()
	for _, t := range d.pool.Live() {
		d.Release(t)
	}
	d.workers.StopAndWait()
	return nil
}
