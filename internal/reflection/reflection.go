// Package reflection renders the scene as seen in the water's rest plane.
package reflection

import (
	"fmt"

	"GopherWater/internal/gpu"
	"GopherWater/internal/logger"
	"GopherWater/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// View is how a Scene should draw itself for one pass.
type View struct {
	Camera *renderer.Camera
	// ClipPlane, when set, discards geometry below the plane.
	ClipPlane *mgl32.Vec4
	// Mirrored views flip triangle winding on screen, so face culling must
	// be inverted.
	Mirrored bool
}

// Scene draws everything except the water surface.
type Scene interface {
	DrawEnvironment(view View, dst gpu.Target) error
}

type Result struct {
	Texture gpu.Target
	// Matrix maps world positions to reflection texture coordinates in
	// homogeneous form: divide xy by w.
	Matrix mgl32.Mat4
}

type Reflector struct {
	dev           gpu.Device
	target        gpu.Target
	width, height int
	planeY        float32
}

func New(dev gpu.Device, width, height int, planeY float32) (*Reflector, error) {
	r := &Reflector{dev: dev, planeY: planeY}
	if err := r.Resize(width, height); err != nil {
		return nil, err
	}
	return r, nil
}

// Resize reallocates the reflection target when the size changes.
func (r *Reflector) Resize(width, height int) error {
	if r.target != nil && width == r.width && height == r.height {
		return nil
	}
	t, err := r.dev.NewTarget(gpu.TargetSpec{
		Name:   "reflection",
		Width:  width,
		Height: height,
		Format: gpu.FormatRGBA8,
		Filter: gpu.FilterLinear,
		Depth:  true,
	})
	if err != nil {
		return fmt.Errorf("reflection: create target: %w", err)
	}
	if r.target != nil {
		r.dev.Release(r.target)
	}
	r.target, r.width, r.height = t, width, height
	logger.Log.Debug("Reflection target sized", zap.Int("width", width), zap.Int("height", height))
	return nil
}

// MirrorCamera reflects cam across the plane y = planeY. The projection
// parameters are copied unchanged.
func MirrorCamera(cam *renderer.Camera, planeY float32) *renderer.Camera {
	mirror := *cam
	mirror.Position = mirrorPoint(cam.Position, planeY)
	mirror.Target = mirrorPoint(cam.Target, planeY)
	mirror.Up = mgl32.Vec3{cam.Up.X(), -cam.Up.Y(), cam.Up.Z()}
	return &mirror
}

func mirrorPoint(p mgl32.Vec3, planeY float32) mgl32.Vec3 {
	return mgl32.Vec3{p.X(), 2*planeY - p.Y(), p.Z()}
}

// TextureMatrix maps world positions into the mirror camera's [0, 1]²
// texture space.
func TextureMatrix(mirror *renderer.Camera) mgl32.Mat4 {
	bias := mgl32.Translate3D(0.5, 0.5, 0.5).Mul4(mgl32.Scale3D(0.5, 0.5, 0.5))
	return bias.Mul4(mirror.GetViewProjection())
}

// ClipPlane keeps what lies above y = planeY.
func ClipPlane(planeY float32) mgl32.Vec4 {
	return mgl32.Vec4{0, 1, 0, -planeY}
}

// Render draws s from the mirrored viewpoint of cam.
func (r *Reflector) Render(s Scene, cam *renderer.Camera) (Result, error) {
	if err := r.dev.Clear(r.target, mgl32.Vec4{}); err != nil {
		return Result{}, fmt.Errorf("reflection: clear: %w", err)
	}
	mirror := MirrorCamera(cam, r.planeY)
	plane := ClipPlane(r.planeY)
	if err := s.DrawEnvironment(View{Camera: mirror, ClipPlane: &plane, Mirrored: true}, r.target); err != nil {
		return Result{}, fmt.Errorf("reflection: %w", err)
	}
	return Result{Texture: r.target, Matrix: TextureMatrix(mirror)}, nil
}

func (r *Reflector) Release() {
	if r.target != nil {
		r.dev.Release(r.target)
		r.target = nil
	}
}
