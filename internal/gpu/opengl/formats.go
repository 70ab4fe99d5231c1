package opengl

import (
	"GopherWater/internal/gpu"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// glFormat maps a pool format to the internal format used for allocation.
// Uploads always pass float data; the driver converts on transfer.
func glFormat(f gpu.Format) (internal int32, ok bool) {
	switch f {
	case gpu.FormatRGBA8:
		return gl.RGBA8, true
	case gpu.FormatRGBA16F:
		return gl.RGBA16F, true
	case gpu.FormatRGBA32F:
		return gl.RGBA32F, true
	}
	return 0, false
}

func glFilter(f gpu.Filter) int32 {
	if f == gpu.FilterNearest {
		return gl.NEAREST
	}
	return gl.LINEAR
}

func glCull(c gpu.CullMode) (face uint32, enabled bool) {
	switch c {
	case gpu.CullBack:
		return gl.BACK, true
	case gpu.CullFront:
		return gl.FRONT, true
	}
	return 0, false
}
