package behaviour

import (
	"math/rand"

	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// RainRate is the mean number of drops per second.
	RainRate       = 12.0
	rainRadius     = 0.02
	rainStrength   = 0.004
	rainGustPeriod = 0.2
)

// Rain scatters small drops over the surface. Its rate rises and falls
// with a slow noise so showers come in gusts.
type Rain struct {
	host  Host
	noise *perlin.Perlin
	rng   *rand.Rand

	time    float64
	pending float64
	Drops   int
}

func NewRain(host Host, seed int64) *Rain {
	return &Rain{
		host:  host,
		noise: perlin.NewPerlin(2, 2, 3, seed),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

func (r *Rain) Start() {}

// Rate is the drop rate at rain time t, between a quarter of RainRate
// and 1.75 times it.
func (r *Rain) Rate(t float64) float64 {
	gust := r.noise.Noise1D(t*rainGustPeriod) * 2
	if gust < -1 {
		gust = -1
	} else if gust > 1 {
		gust = 1
	}
	return RainRate * (1 + 0.75*gust)
}

func (r *Rain) Update(dt float32) {
	if dt <= 0 {
		return
	}
	r.time += float64(dt)
	r.pending += r.Rate(r.time) * float64(dt)
	for r.pending >= 1 {
		r.pending--
		center := mgl32.Vec2{r.rng.Float32(), r.rng.Float32()}
		radius := rainRadius * (0.5 + r.rng.Float32())
		r.host.InjectDrop(center, radius, rainStrength)
		r.Drops++
	}
}
