package opengl

import (
	"testing"

	"GopherWater/internal/gpu"

	"github.com/go-gl/gl/v4.1-core/gl"
)

func TestFormatTable(t *testing.T) {
	cases := map[gpu.Format]int32{
		gpu.FormatRGBA8:   gl.RGBA8,
		gpu.FormatRGBA16F: gl.RGBA16F,
		gpu.FormatRGBA32F: gl.RGBA32F,
	}
	for f, want := range cases {
		got, ok := glFormat(f)
		if !ok || got != want {
			t.Errorf("Format %v mapped to %d, expected %d", f, got, want)
		}
	}
	if _, ok := glFormat(gpu.Format(42)); ok {
		t.Error("Unknown formats should not map")
	}
}

func TestCullTable(t *testing.T) {
	if _, enabled := glCull(gpu.CullNone); enabled {
		t.Error("CullNone should disable face culling")
	}
	if face, _ := glCull(gpu.CullFront); face != gl.FRONT {
		t.Error("CullFront should cull front faces")
	}
}

func TestProgramKeySeparatesVariants(t *testing.T) {
	a := programKey("water", "v", "#define CAUSTICS\nf")
	b := programKey("water", "v", "f")
	if a == b {
		t.Error("Programs with different sources must not share a cache key")
	}
}
