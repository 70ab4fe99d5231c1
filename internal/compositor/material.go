package compositor

import (
	"strings"
)

// Capability is an optional shading feature a material can opt into.
type Capability uint8

const (
	// CapWaterSampling reads the heightfield to tell above from below water.
	CapWaterSampling Capability = 1 << iota
	// CapCaustics brightens submerged points with the caustics texture.
	CapCaustics
	// CapReflection takes the reflected color from the planar reflection.
	CapReflection
	// CapClip honors the pass clip plane.
	CapClip
	// CapTint colors refracted light by the distance it travels in water.
	CapTint
)

var capDefines = []struct {
	cap    Capability
	define string
}{
	{CapWaterSampling, "CAP_WATER_SAMPLING"},
	{CapCaustics, "CAP_CAUSTICS"},
	{CapReflection, "CAP_REFLECTION"},
	{CapClip, "CAP_CLIP"},
	{CapTint, "CAP_TINT"},
}

func (c Capability) String() string {
	var names []string
	for _, d := range capDefines {
		if c&d.cap != 0 {
			names = append(names, strings.ToLower(strings.TrimPrefix(d.define, "CAP_")))
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Material is a shader program described by its capabilities. The GLSL
// sources and the host shading path both branch on the same set, so a
// material never needs its compiled source patched.
type Material struct {
	Name string
	Caps Capability

	vertex   string
	fragment string
}

func (m Material) Has(c Capability) bool {
	return m.Caps&c == c
}

func (m Material) With(c Capability) Material {
	m.Caps |= c
	return m
}

func (m Material) Without(c Capability) Material {
	m.Caps &^= c
	return m
}

// Defines returns one #define line per enabled capability.
func (m Material) Defines() string {
	var b strings.Builder
	for _, d := range capDefines {
		if m.Caps&d.cap != 0 {
			b.WriteString("#define ")
			b.WriteString(d.define)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// VertexSource is empty for full-screen materials.
func (m Material) VertexSource() string {
	if m.vertex == "" {
		return ""
	}
	return m.Defines() + vertexLibrary + m.vertex
}

func (m Material) FragmentSource() string {
	return m.Defines() + fragmentLibrary + m.fragment
}

var (
	SkyMaterial = Material{
		Name:     "sky",
		fragment: skyFragment,
	}
	PoolMaterial = Material{
		Name:     "pool",
		Caps:     CapWaterSampling | CapCaustics,
		vertex:   poolVertex,
		fragment: poolFragment,
	}
	SphereMaterial = Material{
		Name:     "sphere",
		Caps:     CapWaterSampling | CapCaustics,
		vertex:   sphereVertex,
		fragment: sphereFragment,
	}
	WaterAboveMaterial = Material{
		Name:     "water-above",
		Caps:     CapWaterSampling | CapCaustics | CapReflection,
		vertex:   waterVertex,
		fragment: waterAboveFragment,
	}
	WaterBelowMaterial = Material{
		Name:     "water-below",
		Caps:     CapWaterSampling | CapCaustics,
		vertex:   waterVertex,
		fragment: waterBelowFragment,
	}
)
