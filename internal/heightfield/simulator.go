// Package heightfield runs the water wave simulation on a gpu.Device.
//
// State lives in an N×N RGBA float image: R height, G vertical velocity,
// B/A the x/z components of the surface normal. Every operation reads the
// current image, writes the scratch image and swaps.
package heightfield

import (
	"errors"
	"fmt"

	"GopherWater/internal/gpu"
	"GopherWater/internal/logger"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

const (
	// Damping is applied to velocity every propagate step.
	Damping float32 = 0.995
	// MoveEpsilon is the smallest sphere displacement worth stamping.
	MoveEpsilon float32 = 1e-5
	// MinSize and MaxSize bound the grid resolution.
	MinSize = 8
	MaxSize = 2048
)

var ErrInvalidRadius = errors.New("heightfield: radius must be positive")

// Disturbance is a drop applied once by InjectDisturbance.
type Disturbance struct {
	Center   mgl32.Vec2 // uv in [0, 1]²
	Radius   float32    // uv units
	Strength float32
}

type Simulator struct {
	dev   gpu.Device
	buf   *gpu.DoubleBuffer
	size  int
	delta mgl32.Vec2
}

func NewSimulator(dev gpu.Device, size int) (*Simulator, error) {
	if size < MinSize || size > MaxSize {
		return nil, fmt.Errorf("heightfield: grid size %d outside [%d, %d]", size, MinSize, MaxSize)
	}
	buf, err := gpu.NewDoubleBuffer(dev, gpu.TargetSpec{
		Name:   "heightfield",
		Width:  size,
		Height: size,
		Format: gpu.FormatRGBA32F,
		Filter: gpu.FilterLinear,
	})
	if err != nil {
		return nil, fmt.Errorf("heightfield: create state: %w", err)
	}
	s := &Simulator{
		dev:   dev,
		buf:   buf,
		size:  size,
		delta: mgl32.Vec2{1 / float32(size), 1 / float32(size)},
	}
	if err := s.Reset(); err != nil {
		s.Release()
		return nil, err
	}
	logger.Log.Info("Heightfield created", zap.Int("size", size), zap.String("device", dev.Name()))
	return s, nil
}

func (s *Simulator) Size() int { return s.size }

// Delta is the uv distance between neighbouring cells.
func (s *Simulator) Delta() mgl32.Vec2 { return s.delta }

// Current returns the most recently written state. Its identity changes on
// every operation; callers must not keep it across frames.
func (s *Simulator) Current() gpu.Target { return s.buf.Current() }

// Phase flips with every operation that ran a pass.
func (s *Simulator) Phase() int { return s.buf.Phase() }

// Reset flattens the water and zeroes velocity, with normals pointing up.
func (s *Simulator) Reset() error {
	if err := s.dev.Clear(s.buf.Scratch(), mgl32.Vec4{}); err != nil {
		return fmt.Errorf("heightfield: reset: %w", err)
	}
	if err := s.dev.Clear(s.buf.Current(), mgl32.Vec4{}); err != nil {
		return fmt.Errorf("heightfield: reset: %w", err)
	}
	return nil
}

func (s *Simulator) step(name, fragment string, uniforms gpu.Uniforms, kernel gpu.Kernel) error {
	_, err := s.buf.Step(func(read, write gpu.Target) error {
		return s.dev.Run(gpu.Pass{
			Name:     name,
			Fragment: fragment,
			Uniforms: uniforms,
			Inputs:   []gpu.Input{{Name: "water", Target: read}},
			Kernel:   kernel,
		}, write)
	})
	if err != nil {
		return fmt.Errorf("heightfield: %s: %w", name, err)
	}
	return nil
}

// InjectDisturbance adds a raised-cosine drop. Cells at or beyond radius
// from center are left untouched.
func (s *Simulator) InjectDisturbance(center mgl32.Vec2, radius, strength float32) error {
	if !(radius > 0) {
		return ErrInvalidRadius
	}
	return s.step("drop", dropFragment, gpu.Uniforms{
		"center":   center,
		"radius":   radius,
		"strength": strength,
	}, dropKernel(center, radius, strength))
}

// Inject applies a Disturbance.
func (s *Simulator) Inject(d Disturbance) error {
	return s.InjectDisturbance(d.Center, d.Radius, d.Strength)
}

// Propagate advances the damped wave equation by one step. Neighbours are
// read at ±(dx, dy) in uv with clamp-to-edge addressing.
func (s *Simulator) Propagate(dx, dy float32) error {
	delta := mgl32.Vec2{dx, dy}
	return s.step("propagate", propagateFragment, gpu.Uniforms{
		"delta":   delta,
		"damping": Damping,
	}, propagateKernel(delta, Damping))
}

// RecomputeNormals rebuilds B/A from forward differences of height, using
// the same clamp addressing as Propagate.
func (s *Simulator) RecomputeNormals(dx, dy float32) error {
	delta := mgl32.Vec2{dx, dy}
	return s.step("normals", normalFragment, gpu.Uniforms{
		"delta": delta,
	}, normalKernel(delta))
}

// StampSphereMotion moves the sphere's displaced volume from oldCenter to
// newCenter in one pass. It reports false, and runs nothing, when the
// sphere moved less than MoveEpsilon.
func (s *Simulator) StampSphereMotion(oldCenter, newCenter mgl32.Vec3, radius float32) (bool, error) {
	if !(radius > 0) {
		return false, ErrInvalidRadius
	}
	if newCenter.Sub(oldCenter).Len() <= MoveEpsilon {
		return false, nil
	}
	err := s.step("sphere", sphereFragment, gpu.Uniforms{
		"oldCenter": oldCenter,
		"newCenter": newCenter,
		"radius":    radius,
	}, sphereKernel(oldCenter, newCenter, radius))
	return err == nil, err
}

func (s *Simulator) Release() {
	if s.buf != nil {
		s.buf.Release(s.dev)
		s.buf = nil
	}
}
