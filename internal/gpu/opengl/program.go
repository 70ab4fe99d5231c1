package opengl

import (
	"fmt"
	"strings"

	"GopherWater/internal/gpu"
	"GopherWater/internal/logger"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
)

const glslVersion = "#version 410 core\n"

const fullscreenVertex = glslVersion + `
layout(location = 0) in vec2 position;
out vec2 coord;
void main() {
    coord = position * 0.5 + 0.5;
    gl_Position = vec4(position, 0.0, 1.0);
}
`

const fullscreenFragmentHeader = glslVersion + `
in vec2 coord;
out vec4 fragColor;
`

const meshVertexHeader = glslVersion + `
layout(location = 0) in vec3 position;
uniform vec4 clipPlane;
`

const meshFragmentHeader = glslVersion + `
out vec4 fragColor;
`

// program is a linked shader program with its uniform bookkeeping.
type program struct {
	name     string
	id       uint32
	uniforms *UniformCache
}

func (p *program) Use() {
	gl.UseProgram(p.id)
}

func (p *program) delete() {
	if p.id != 0 {
		gl.DeleteProgram(p.id)
		p.id = 0
	}
}

func compileShader(name, source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	cSources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, cSources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		logger.Log.Error("Failed to compile",
			zap.String("program", name),
			zap.Uint32("shaderType", shaderType),
			zap.String("log", log))
		return 0, fmt.Errorf("%w: compile %q: %s", gpu.ErrResource, name, strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

func linkProgram(name, vertexSource, fragmentSource string) (*program, error) {
	vs, err := compileShader(name, vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return nil, err
	}
	fs, err := compileShader(name, fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vs)
		return nil, err
	}

	id := gl.CreateProgram()
	gl.AttachShader(id, vs)
	gl.AttachShader(id, fs)
	gl.LinkProgram(id)
	gl.DetachShader(id, vs)
	gl.DeleteShader(vs)
	gl.DetachShader(id, fs)
	gl.DeleteShader(fs)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(id, logLength, nil, gl.Str(log))
		gl.DeleteProgram(id)

		logger.Log.Error("Failed to link program", zap.String("program", name), zap.String("log", log))
		return nil, fmt.Errorf("%w: link %q: %s", gpu.ErrResource, name, strings.TrimRight(log, "\x00"))
	}

	logger.Log.Debug("Program linked", zap.String("program", name), zap.Uint32("id", id))
	return &program{name: name, id: id, uniforms: NewUniformCache(id)}, nil
}

// programKey identifies a program by pass name and sources, so two passes
// that share a name but differ in capabilities never collide.
func programKey(name, vertex, fragment string) string {
	return name + "\x00" + vertex + "\x00" + fragment
}

func (d *Device) fullscreenProgram(p gpu.Pass) (*program, error) {
	key := programKey(p.Name, "", p.Fragment)
	if prog, ok := d.programs[key]; ok {
		return prog, nil
	}
	prog, err := linkProgram(p.Name, fullscreenVertex, fullscreenFragmentHeader+p.Fragment)
	if err != nil {
		return nil, err
	}
	d.programs[key] = prog
	return prog, nil
}

func (d *Device) meshProgram(p gpu.MeshPass) (*program, error) {
	key := programKey(p.Name, p.Vertex, p.Fragment)
	if prog, ok := d.programs[key]; ok {
		return prog, nil
	}
	prog, err := linkProgram(p.Name, meshVertexHeader+p.Vertex, meshFragmentHeader+p.Fragment)
	if err != nil {
		return nil, err
	}
	d.programs[key] = prog
	return prog, nil
}
