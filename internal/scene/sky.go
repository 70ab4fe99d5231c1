package scene

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

type SkyPreset int

const (
	SkyDefault SkyPreset = iota
	SkySunset
	SkyCloudy
	SkyNight
)

var skyNames = [...]string{"default", "sunset", "cloudy", "night"}

func (p SkyPreset) String() string {
	if p >= 0 && int(p) < len(skyNames) {
		return skyNames[p]
	}
	return fmt.Sprintf("SkyPreset(%d)", int(p))
}

func ParseSkyPreset(name string) (SkyPreset, error) {
	for i, n := range skyNames {
		if strings.EqualFold(n, name) {
			return SkyPreset(i), nil
		}
	}
	return SkyDefault, fmt.Errorf("scene: unknown sky preset %q", name)
}

// AtmosphereParams drive the analytic daylight model.
type AtmosphereParams struct {
	Turbidity       float64
	Rayleigh        float64
	MieCoefficient  float64
	MieDirectionalG float64
	Exposure        float64
	// Ambient is added after tone mapping so night skies are not black.
	Ambient mgl32.Vec3
}

var presets = map[SkyPreset]AtmosphereParams{
	SkyDefault: {Turbidity: 10, Rayleigh: 2, MieCoefficient: 0.005, MieDirectionalG: 0.8, Exposure: 0.5},
	SkySunset:  {Turbidity: 4, Rayleigh: 4, MieCoefficient: 0.01, MieDirectionalG: 0.93, Exposure: 0.4},
	SkyCloudy:  {Turbidity: 20, Rayleigh: 0.5, MieCoefficient: 0.05, MieDirectionalG: 0.6, Exposure: 0.35, Ambient: mgl32.Vec3{0.08, 0.08, 0.09}},
	SkyNight:   {Turbidity: 2, Rayleigh: 0.2, MieCoefficient: 0.002, MieDirectionalG: 0.8, Exposure: 0.08, Ambient: mgl32.Vec3{0.01, 0.015, 0.04}},
}

func (p SkyPreset) Params() AtmosphereParams {
	if a, ok := presets[p]; ok {
		return a
	}
	return presets[SkyDefault]
}

// Preetham clear-sky constants.
var (
	totalRayleigh = [3]float64{5.804542996261093e-6, 1.3562911419845635e-5, 3.0265902468824876e-5}
	mieConst      = [3]float64{1.8399918514433978e14, 2.7798023919660528e14, 4.0790479543861094e14}
)

const (
	cutoffAngle          = 1.6110731556870734
	steepness            = 1.5
	sunEE                = 1000.0
	rayleighZenithLength = 8.4e3
	mieZenithLength      = 1.25e3
	threeOverSixteenPi   = 0.05968310365946075
	oneOverFourPi        = 0.07957747154594767
	sunDistance          = 400000.0
	sunFadeDistance      = 450000.0
)

func sunIntensity(zenithCos float64) float64 {
	zenithCos = math.Max(-1, math.Min(1, zenithCos))
	return sunEE * math.Max(0, 1-math.Exp(-(cutoffAngle-math.Acos(zenithCos))/steepness))
}

func hgPhase(cosTheta, g float64) float64 {
	g2 := g * g
	return oneOverFourPi * (1 - g2) / math.Pow(1-2*g*cosTheta+g2, 1.5)
}

// aces is the Narkowicz fit of the ACES filmic curve.
func aces(x float64) float64 {
	return math.Max(0, math.Min(1, x*(2.51*x+0.03)/(x*(2.43*x+0.59)+0.14)))
}

// Radiance is the tone-mapped sky colour seen along dir with the sun in
// direction sun. Both must be unit length.
func Radiance(dir, sun mgl32.Vec3, a AtmosphereParams) mgl32.Vec3 {
	d := [3]float64{float64(dir[0]), float64(dir[1]), float64(dir[2])}
	s := [3]float64{float64(sun[0]), float64(sun[1]), float64(sun[2])}
	sunUp := s[1]

	sunE := sunIntensity(sunUp)
	sunFade := 1 - math.Max(0, math.Min(1, 1-math.Exp(s[1]*sunDistance/sunFadeDistance)))
	rayleighCoefficient := math.Max(0, a.Rayleigh-(1-sunFade))

	var betaR, betaM [3]float64
	c := 0.2 * a.Turbidity * 10e-18
	for i := range betaR {
		betaR[i] = totalRayleigh[i] * rayleighCoefficient
		betaM[i] = 0.434 * c * mieConst[i] * a.MieCoefficient
	}

	zenith := math.Acos(math.Max(0, d[1]))
	inverse := 1 / (math.Cos(zenith) + 0.15*math.Pow(93.885-zenith*180/math.Pi, -1.253))
	sR := rayleighZenithLength * inverse
	sM := mieZenithLength * inverse

	cosTheta := d[0]*s[0] + d[1]*s[1] + d[2]*s[2]
	rPhase := threeOverSixteenPi * (1 + math.Pow(cosTheta*0.5+0.5, 2))
	mPhase := hgPhase(cosTheta, a.MieDirectionalG)
	horizon := math.Max(0, math.Min(1, math.Pow(1-sunUp, 5)))

	var out mgl32.Vec3
	for i := 0; i < 3; i++ {
		fex := math.Exp(-(betaR[i]*sR + betaM[i]*sM))
		ratio := (betaR[i]*rPhase + betaM[i]*mPhase) / math.Max(betaR[i]+betaM[i], 1e-12)
		lin := math.Pow(math.Max(0, sunE*ratio*(1-fex)), 1.5)
		lin *= 1 + (math.Sqrt(math.Max(0, sunE*ratio*fex))-1)*horizon
		l0 := 0.1 * fex
		tex := (lin+l0)*0.04 + [3]float64{0, 0.0003, 0.00075}[i]
		ret := math.Pow(tex, 1/(1.2+1.2*sunFade))
		v := aces(ret*a.Exposure/0.6) + float64(a.Ambient[i])
		if math.IsNaN(v) {
			v = 0
		}
		out[i] = float32(math.Min(1, v))
	}
	return out
}
