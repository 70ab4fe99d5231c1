package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// UniformCache caches uniform locations to avoid repeated gl.GetUniformLocation calls
type UniformCache struct {
	locations map[string]int32
	program   uint32
}

// NewUniformCache creates a new uniform cache for a shader program
func NewUniformCache(program uint32) *UniformCache {
	return &UniformCache{
		locations: make(map[string]int32),
		program:   program,
	}
}

// GetLocation returns the cached uniform location or fetches and caches it
func (uc *UniformCache) GetLocation(name string) int32 {
	if loc, exists := uc.locations[name]; exists {
		return loc
	}

	loc := gl.GetUniformLocation(uc.program, gl.Str(name+"\x00"))
	uc.locations[name] = loc
	return loc
}

// Set uploads a uniform of any supported type. Unused uniforms (location -1)
// are skipped, since the GLSL compiler strips what a variant does not read.
func (uc *UniformCache) Set(name string, value any) error {
	loc := uc.GetLocation(name)
	if loc == -1 {
		return nil
	}
	switch v := value.(type) {
	case float32:
		gl.Uniform1f(loc, v)
	case float64:
		gl.Uniform1f(loc, float32(v))
	case int32:
		gl.Uniform1i(loc, v)
	case int:
		gl.Uniform1i(loc, int32(v))
	case bool:
		var i int32
		if v {
			i = 1
		}
		gl.Uniform1i(loc, i)
	case mgl32.Vec2:
		gl.Uniform2f(loc, v[0], v[1])
	case mgl32.Vec3:
		gl.Uniform3f(loc, v[0], v[1], v[2])
	case mgl32.Vec4:
		gl.Uniform4f(loc, v[0], v[1], v[2], v[3])
	case mgl32.Mat4:
		gl.UniformMatrix4fv(loc, 1, false, &v[0])
	default:
		return fmt.Errorf("uniform %q: unsupported type %T", name, value)
	}
	return nil
}

// SetInt sets an int uniform using cached location
func (uc *UniformCache) SetInt(name string, value int32) {
	loc := uc.GetLocation(name)
	if loc != -1 {
		gl.Uniform1i(loc, value)
	}
}

// Clear clears the cache (call when shader program changes)
func (uc *UniformCache) Clear() {
	uc.locations = make(map[string]int32)
}
