// Package gpu is the render target pool shared by every stage of the water
// pipeline. It describes targets, full-screen and mesh passes and a
// double-buffer handle; internal/gpu/cpu and internal/gpu/opengl execute them.
//
// Shader source conventions:
//   - full-screen fragment sources read `in vec2 coord` (texel-centre uv)
//     and write `fragColor`;
//   - mesh vertex sources read `layout(location = 0) position`, must write
//     gl_Position and `gl_ClipDistance[0] = dot(vec4(world, 1.0), clipPlane)`;
//   - devices prepend the #version line and these declarations.
package gpu

import (
	"fmt"
)

type Format int

const (
	FormatRGBA8 Format = iota
	FormatRGBA16F
	FormatRGBA32F
)

func (f Format) String() string {
	switch f {
	case FormatRGBA8:
		return "RGBA8"
	case FormatRGBA16F:
		return "RGBA16F"
	case FormatRGBA32F:
		return "RGBA32F"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// BytesPerTexel is the device-side footprint, used for pool statistics.
func (f Format) BytesPerTexel() int {
	switch f {
	case FormatRGBA8:
		return 4
	case FormatRGBA16F:
		return 8
	case FormatRGBA32F:
		return 16
	}
	return 0
}

type Filter int

const (
	FilterLinear Filter = iota
	FilterNearest
)

// TargetSpec describes a render target. All targets use clamp-to-edge
// addressing. Cube targets have six Width×Width faces.
type TargetSpec struct {
	Name   string
	Width  int
	Height int
	Format Format
	Filter Filter
	Depth  bool
	Cube   bool
}

func (s TargetSpec) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: target %q has size %dx%d", ErrResource, s.Name, s.Width, s.Height)
	}
	if s.Cube && s.Width != s.Height {
		return fmt.Errorf("%w: cube target %q must be square", ErrResource, s.Name)
	}
	if s.Format.BytesPerTexel() == 0 {
		return fmt.Errorf("%w: target %q has unknown format %v", ErrResource, s.Name, s.Format)
	}
	return nil
}

// Bytes is the approximate device memory held by a target of this spec.
func (s TargetSpec) Bytes() int64 {
	texels := int64(s.Width) * int64(s.Height)
	if s.Cube {
		texels *= 6
	}
	n := texels * int64(s.Format.BytesPerTexel())
	if s.Depth {
		n += int64(s.Width) * int64(s.Height) * 4
	}
	return n
}

// Target is a device-owned image. Holders must not keep a Target beyond the
// frame it was handed to them in unless they allocated it.
type Target interface {
	Spec() TargetSpec
	Size() (width, height int)
}
