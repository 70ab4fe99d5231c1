package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Light is the single directional light. Direction points towards the sun.
type Light struct {
	Direction mgl32.Vec3
	Color     mgl32.Vec3
	Intensity float32
	Specular  float32
}

func DefaultLight() Light {
	return Light{
		Direction: mgl32.Vec3{2, 2, -1}.Normalize(),
		Color:     mgl32.Vec3{1, 1, 1},
		Intensity: 1,
		Specular:  1,
	}
}

// SetDirection normalizes and stores d. Zero or non-finite directions are
// rejected and leave the light unchanged.
func (l *Light) SetDirection(d mgl32.Vec3) bool {
	n := d.Len()
	if !(n > 0) || math.IsInf(float64(n), 0) {
		return false
	}
	l.Direction = d.Mul(1 / n)
	return true
}
