package gpu_test

import (
	"errors"
	"testing"

	"GopherWater/internal/gpu"
	"GopherWater/internal/gpu/cpu"

	"github.com/go-gl/mathgl/mgl32"
)

func TestTargetSpecValidate(t *testing.T) {
	if err := (gpu.TargetSpec{Name: "ok", Width: 4, Height: 4}).Validate(); err != nil {
		t.Errorf("Expected a valid spec, got %v", err)
	}
	if err := (gpu.TargetSpec{Name: "empty"}).Validate(); !errors.Is(err, gpu.ErrResource) {
		t.Errorf("Expected ErrResource for an empty target, got %v", err)
	}
	if err := (gpu.TargetSpec{Name: "cube", Width: 4, Height: 2, Cube: true}).Validate(); err == nil {
		t.Error("Expected non-square cube targets to be rejected")
	}
}

func TestTargetSpecBytes(t *testing.T) {
	spec := gpu.TargetSpec{Width: 2, Height: 2, Format: gpu.FormatRGBA32F}
	if spec.Bytes() != 64 {
		t.Errorf("Expected 64 bytes, got %d", spec.Bytes())
	}
	spec.Cube = true
	if spec.Bytes() != 6*64 {
		t.Errorf("Expected six faces worth of bytes, got %d", spec.Bytes())
	}
}

func TestCubeFaceRoundTrip(t *testing.T) {
	for face := 0; face < 6; face++ {
		dir := gpu.CubeDirection(face, 0.3, 0.8)
		gotFace, s, tt := gpu.CubeFace(dir)
		if gotFace != face {
			t.Errorf("Face %d: direction %v selected face %d", face, dir, gotFace)
		}
		if abs(s-0.3) > 1e-5 || abs(tt-0.8) > 1e-5 {
			t.Errorf("Face %d: expected (0.3, 0.8), got (%f, %f)", face, s, tt)
		}
	}
}

func TestIsFatal(t *testing.T) {
	if !gpu.IsFatal(gpu.ErrContextLost) || !gpu.IsFatal(gpu.ErrResource) {
		t.Error("Context loss and resource failures should be fatal")
	}
	if gpu.IsFatal(gpu.ErrFeedbackLoop) {
		t.Error("A feedback loop is a programming error, not a device failure")
	}
}

func TestDoubleBufferSwapsOnSuccess(t *testing.T) {
	dev, err := cpu.New(cpu.Options{Workers: 2})
	if err != nil {
		t.Fatalf("Failed to create device: %v", err)
	}
	defer dev.Close()

	buf, err := gpu.NewDoubleBuffer(dev, gpu.TargetSpec{Name: "state", Width: 4, Height: 4, Format: gpu.FormatRGBA32F})
	if err != nil {
		t.Fatalf("Failed to create double buffer: %v", err)
	}
	defer buf.Release(dev)

	first := buf.Current()
	next, err := buf.Step(func(read, write gpu.Target) error {
		if read == write {
			t.Error("A step must never read and write the same target")
		}
		return dev.Clear(write, mgl32.Vec4{1, 0, 0, 0})
	})
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if next == first || buf.Current() != next || buf.Phase() != 1 {
		t.Error("A successful step should make the written target current")
	}

	boom := errors.New("boom")
	if _, err := buf.Step(func(read, write gpu.Target) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Expected the step error to be returned, got %v", err)
	}
	if buf.Current() != next {
		t.Error("A failed step must not swap")
	}
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
