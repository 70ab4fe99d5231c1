// Package opengl implements gpu.Device on an OpenGL 4.1 core context.
// Passes are issued without waiting on the GPU and nothing is read back;
// ordering comes from the context's command stream.
package opengl

import (
	"fmt"
	"sync"

	"GopherWater/internal/gpu"
	"GopherWater/internal/logger"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// GL_CONTEXT_LOST is core in 4.5; 4.1 drivers may still report it with
// robustness extensions.
const glContextLost = 0x0507

type target struct {
	spec     gpu.TargetSpec
	texture  uint32
	fbo      uint32
	depth    uint32
	screen   bool
	released bool
}

func (t *target) Spec() gpu.TargetSpec { return t.spec }

func (t *target) Size() (int, int) { return t.spec.Width, t.spec.Height }

type meshBuffers struct {
	vao, vbo, ebo uint32
	count         int32
}

// Device must be created and used on the goroutine owning the GL context.
type Device struct {
	pool     *gpu.Pool
	screen   *target
	programs map[string]*program
	meshes   map[*gpu.Mesh]*meshBuffers
	quadVAO  uint32
	quadVBO  uint32

	mu   sync.Mutex
	lost error
}

// New expects gl.Init to have succeeded on the current context.
func New(width, height int) (*Device, error) {
	d := &Device{
		pool:     gpu.NewPool("opengl"),
		screen:   &target{spec: gpu.TargetSpec{Name: "screen", Width: width, Height: height, Format: gpu.FormatRGBA8, Depth: true}, screen: true},
		programs: make(map[string]*program),
		meshes:   make(map[*gpu.Mesh]*meshBuffers),
	}

	quad := []float32{-1, -1, 1, -1, 1, 1, -1, -1, 1, 1, -1, 1}
	gl.GenVertexArrays(1, &d.quadVAO)
	gl.BindVertexArray(d.quadVAO)
	gl.GenBuffers(1, &d.quadVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(quad)*4, gl.Ptr(quad), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, gl.PtrOffset(0))
	gl.BindVertexArray(0)

	gl.Enable(gl.TEXTURE_CUBE_MAP_SEAMLESS)

	if err := d.check("init"); err != nil {
		return nil, err
	}
	logger.Log.Info("OpenGL device ready",
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))))
	return d, nil
}

func (d *Device) Name() string { return "opengl" }

// check turns pending GL errors into pool errors. Context loss is sticky.
func (d *Device) check(op string) error {
	code := gl.GetError()
	if code == gl.NO_ERROR {
		return nil
	}
	for i := 0; i < 8 && gl.GetError() != gl.NO_ERROR; i++ {
	}
	switch code {
	case glContextLost:
		d.mu.Lock()
		d.lost = gpu.ErrContextLost
		d.mu.Unlock()
		logger.Log.Error("OpenGL context lost", zap.String("op", op))
		return fmt.Errorf("%s: %w", op, gpu.ErrContextLost)
	case gl.OUT_OF_MEMORY:
		return fmt.Errorf("%w: %s: out of memory", gpu.ErrResource, op)
	}
	return fmt.Errorf("%w: %s: gl error 0x%04x", gpu.ErrResource, op, code)
}

func (d *Device) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lost
}

func (d *Device) NewTarget(spec gpu.TargetSpec) (gpu.Target, error) {
	if err := d.Err(); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	internal, ok := glFormat(spec.Format)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported format %v", gpu.ErrResource, spec.Format)
	}

	t := &target{spec: spec}
	w, h := int32(spec.Width), int32(spec.Height)
	filter := glFilter(spec.Filter)

	gl.GenTextures(1, &t.texture)
	if spec.Cube {
		gl.BindTexture(gl.TEXTURE_CUBE_MAP, t.texture)
		for f := uint32(0); f < 6; f++ {
			gl.TexImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+f, 0, internal, w, h, 0, gl.RGBA, gl.FLOAT, nil)
		}
		gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MIN_FILTER, filter)
		gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MAG_FILTER, filter)
		gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	} else {
		gl.BindTexture(gl.TEXTURE_2D, t.texture)
		gl.TexImage2D(gl.TEXTURE_2D, 0, internal, w, h, 0, gl.RGBA, gl.FLOAT, nil)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

		gl.GenFramebuffers(1, &t.fbo)
		gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.texture, 0)
		if spec.Depth {
			gl.GenRenderbuffers(1, &t.depth)
			gl.BindRenderbuffer(gl.RENDERBUFFER, t.depth)
			gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, w, h)
			gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, t.depth)
		}
		status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		if status != gl.FRAMEBUFFER_COMPLETE {
			d.destroy(t)
			return nil, fmt.Errorf("%w: framebuffer for %q incomplete (0x%04x)", gpu.ErrResource, spec.Name, status)
		}
	}

	if err := d.check("create " + spec.Name); err != nil {
		d.destroy(t)
		return nil, err
	}
	d.pool.Track(t)
	return t, nil
}

func (d *Device) lookup(t gpu.Target) (*target, error) {
	gt, ok := t.(*target)
	if !ok || gt == nil {
		return nil, fmt.Errorf("%w: target %T does not belong to the opengl device", gpu.ErrResource, t)
	}
	if gt.released {
		return nil, fmt.Errorf("%w: %q", gpu.ErrReleased, gt.spec.Name)
	}
	return gt, nil
}

func (d *Device) Upload(t gpu.Target, rgba []float32) error {
	gt, err := d.lookup(t)
	if err != nil {
		return err
	}
	if gt.spec.Cube || gt.screen || len(rgba) != gt.spec.Width*gt.spec.Height*4 {
		return fmt.Errorf("%w: upload of %d floats into %q", gpu.ErrResource, len(rgba), gt.spec.Name)
	}
	gl.BindTexture(gl.TEXTURE_2D, gt.texture)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(gt.spec.Width), int32(gt.spec.Height), gl.RGBA, gl.FLOAT, gl.Ptr(rgba))
	return d.check("upload " + gt.spec.Name)
}

func (d *Device) UploadCube(t gpu.Target, faces [6][]float32) error {
	gt, err := d.lookup(t)
	if err != nil {
		return err
	}
	if !gt.spec.Cube {
		return fmt.Errorf("%w: %q is not a cube target", gpu.ErrResource, gt.spec.Name)
	}
	n := gt.spec.Width * gt.spec.Height * 4
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, gt.texture)
	for f := range faces {
		if len(faces[f]) != n {
			return fmt.Errorf("%w: cube face %d of %q has %d floats", gpu.ErrResource, f, gt.spec.Name, len(faces[f]))
		}
		gl.TexSubImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+uint32(f), 0, 0, 0,
			int32(gt.spec.Width), int32(gt.spec.Height), gl.RGBA, gl.FLOAT, gl.Ptr(faces[f]))
	}
	return d.check("upload cube " + gt.spec.Name)
}

func (d *Device) bindTarget(t *target) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.Viewport(0, 0, int32(t.spec.Width), int32(t.spec.Height))
}

func (d *Device) Clear(dst gpu.Target, color mgl32.Vec4) error {
	if err := d.Err(); err != nil {
		return err
	}
	t, err := d.lookup(dst)
	if err != nil {
		return err
	}
	d.bindTarget(t)
	gl.ClearColor(color[0], color[1], color[2], color[3])
	gl.DepthMask(true)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	return d.check("clear " + t.spec.Name)
}

// bindInputs binds each input to consecutive texture units and points the
// named sampler uniform at it.
func (d *Device) bindInputs(prog *program, name string, inputs []gpu.Input, dst gpu.Target) error {
	if err := gpu.CheckFeedback(name, inputs, dst); err != nil {
		return err
	}
	for i, in := range inputs {
		t, err := d.lookup(in.Target)
		if err != nil {
			return fmt.Errorf("pass %q input %q: %w", name, in.Name, err)
		}
		if t.screen {
			return fmt.Errorf("%w: pass %q samples the screen", gpu.ErrResource, name)
		}
		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		if t.spec.Cube {
			gl.BindTexture(gl.TEXTURE_CUBE_MAP, t.texture)
		} else {
			gl.BindTexture(gl.TEXTURE_2D, t.texture)
		}
		prog.uniforms.SetInt(in.Name, int32(i))
	}
	return nil
}

func setUniforms(prog *program, name string, u gpu.Uniforms) error {
	for k, v := range u {
		if err := prog.uniforms.Set(k, v); err != nil {
			return fmt.Errorf("%w: pass %q: %v", gpu.ErrResource, name, err)
		}
	}
	return nil
}

func (d *Device) Run(p gpu.Pass, dst gpu.Target) error {
	if err := d.Err(); err != nil {
		return err
	}
	t, err := d.lookup(dst)
	if err != nil {
		return err
	}
	if t.spec.Cube {
		return fmt.Errorf("%w: pass %q cannot render into cube %q", gpu.ErrResource, p.Name, t.spec.Name)
	}
	prog, err := d.fullscreenProgram(p)
	if err != nil {
		return err
	}

	d.bindTarget(t)
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.BLEND)
	gl.Disable(gl.CULL_FACE)
	gl.Disable(gl.CLIP_DISTANCE0)

	prog.Use()
	if err := d.bindInputs(prog, p.Name, p.Inputs, dst); err != nil {
		return err
	}
	if err := setUniforms(prog, p.Name, p.Uniforms); err != nil {
		return err
	}
	gl.BindVertexArray(d.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
	return d.check(p.Name)
}

func (d *Device) meshBuffers(m *gpu.Mesh) *meshBuffers {
	if mb, ok := d.meshes[m]; ok {
		return mb
	}
	positions := make([]float32, 0, len(m.Positions)*3)
	for _, p := range m.Positions {
		positions = append(positions, p[0], p[1], p[2])
	}

	mb := &meshBuffers{count: int32(len(m.Indices))}
	gl.GenVertexArrays(1, &mb.vao)
	gl.BindVertexArray(mb.vao)
	gl.GenBuffers(1, &mb.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, mb.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(positions)*4, gl.Ptr(positions), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, gl.PtrOffset(0))
	gl.GenBuffers(1, &mb.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, mb.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(m.Indices)*4, gl.Ptr(m.Indices), gl.STATIC_DRAW)
	gl.BindVertexArray(0)

	d.meshes[m] = mb
	logger.Log.Debug("Mesh uploaded",
		zap.String("mesh", m.Name),
		zap.Int("vertices", len(m.Positions)),
		zap.Int("triangles", m.Triangles()))
	return mb
}

func (d *Device) Draw(p gpu.MeshPass, dst gpu.Target) error {
	if err := d.Err(); err != nil {
		return err
	}
	if p.Mesh == nil || len(p.Mesh.Indices) == 0 {
		return fmt.Errorf("%w: mesh pass %q has no mesh", gpu.ErrResource, p.Name)
	}
	t, err := d.lookup(dst)
	if err != nil {
		return err
	}
	if t.spec.Cube {
		return fmt.Errorf("%w: mesh pass %q cannot render into cube %q", gpu.ErrResource, p.Name, t.spec.Name)
	}
	prog, err := d.meshProgram(p)
	if err != nil {
		return err
	}

	d.bindTarget(t)
	if face, ok := glCull(p.Cull); ok {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(face)
	} else {
		gl.Disable(gl.CULL_FACE)
	}
	if p.Blend == gpu.BlendAdditive {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.ONE, gl.ONE)
	} else {
		gl.Disable(gl.BLEND)
	}
	if p.DepthTest && t.spec.Depth {
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LESS)
		gl.DepthMask(true)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}

	prog.Use()
	plane := mgl32.Vec4{0, 0, 0, 1}
	if p.ClipPlane != nil {
		plane = *p.ClipPlane
		gl.Enable(gl.CLIP_DISTANCE0)
	} else {
		gl.Disable(gl.CLIP_DISTANCE0)
	}
	if err := prog.uniforms.Set("clipPlane", plane); err != nil {
		return err
	}
	if err := d.bindInputs(prog, p.Name, p.Inputs, dst); err != nil {
		return err
	}
	if err := setUniforms(prog, p.Name, p.Uniforms); err != nil {
		return err
	}

	mb := d.meshBuffers(p.Mesh)
	gl.BindVertexArray(mb.vao)
	gl.DrawElements(gl.TRIANGLES, mb.count, gl.UNSIGNED_INT, gl.PtrOffset(0))
	gl.BindVertexArray(0)
	return d.check(p.Name)
}

func (d *Device) Screen() gpu.Target { return d.screen }

func (d *Device) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: screen size %dx%d", gpu.ErrResource, width, height)
	}
	d.screen.spec.Width, d.screen.spec.Height = width, height
	return nil
}

func (d *Device) destroy(t *target) {
	if t.fbo != 0 {
		gl.DeleteFramebuffers(1, &t.fbo)
	}
	if t.depth != 0 {
		gl.DeleteRenderbuffers(1, &t.depth)
	}
	if t.texture != 0 {
		gl.DeleteTextures(1, &t.texture)
	}
	t.fbo, t.depth, t.texture = 0, 0, 0
	t.released = true
}

func (d *Device) Release(t gpu.Target) {
	gt, ok := t.(*target)
	if !ok || gt == nil || gt.released || gt.screen {
		return
	}
	if d.pool.Untrack(gt) {
		d.destroy(gt)
	}
}

func (d *Device) Stats() gpu.PoolStats { return d.pool.Stats() }

func (d *Device) Close() error {
	d.pool.LogStats()
	for _, t := range d.pool.Live() {
		d.Release(t)
	}
	for k, prog := range d.programs {
		prog.delete()
		delete(d.programs, k)
	}
	for m, mb := range d.meshes {
		gl.DeleteVertexArrays(1, &mb.vao)
		gl.DeleteBuffers(1, &mb.vbo)
		gl.DeleteBuffers(1, &mb.ebo)
		delete(d.meshes, m)
	}
	gl.DeleteVertexArrays(1, &d.quadVAO)
	gl.DeleteBuffers(1, &d.quadVBO)
	return nil
}
