package behaviour

import (
	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	wanderSpeed     = 0.15
	wanderAmplitude = 1.2
	wanderDepth     = -0.35
	wanderBob       = 0.25
)

// SphereWander drifts the sphere along a smooth noise path while nothing
// else holds it.
type SphereWander struct {
	host  Host
	noise *perlin.Perlin
	time  float64
}

func NewSphereWander(host Host, seed int64) *SphereWander {
	return &SphereWander{host: host, noise: perlin.NewPerlin(2, 2, 3, seed)}
}

func (w *SphereWander) Start() {}

// Position is where the sphere should be at wander time t.
func (w *SphereWander) Position(t float64) mgl32.Vec3 {
	s := t * wanderSpeed
	return mgl32.Vec3{
		wanderAmplitude * float32(w.noise.Noise1D(s)),
		wanderDepth + wanderBob*float32(w.noise.Noise1D(s+37.1)),
		wanderAmplitude * float32(w.noise.Noise1D(s+71.3)),
	}
}

func (w *SphereWander) Update(dt float32) {
	if !w.host.SphereFree() {
		return
	}
	w.time += float64(dt)
	w.host.MoveSphere(w.Position(w.time))
}
