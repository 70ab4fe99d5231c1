package scene

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	DefaultSphereRadius float32 = 0.25
	// Restitution is the fraction of vertical speed kept on a floor bounce.
	Restitution float32 = 0.7
	// MaxSphereHeight bounds how far the sphere can be lifted out of the pool.
	MaxSphereHeight float32 = 10
)

var Gravity = mgl32.Vec3{0, -4, 0}

var ErrInvalidSphere = errors.New("scene: sphere radius must be in (0, 1)")

// Sphere is the single dynamic body. OldCenter is where the water last saw
// it; the frame driver stamps OldCenter→Center and then calls Commit.
type Sphere struct {
	Center    mgl32.Vec3
	OldCenter mgl32.Vec3
	Velocity  mgl32.Vec3
	Radius    float32
}

func NewSphere(center mgl32.Vec3, radius float32) (*Sphere, error) {
	if !(radius > 0 && radius < 1) {
		return nil, ErrInvalidSphere
	}
	s := &Sphere{Radius: radius}
	s.Center = s.clamp(center)
	s.OldCenter = s.Center
	return s, nil
}

func (s *Sphere) clamp(p mgl32.Vec3) mgl32.Vec3 {
	lo, hi := s.Radius-1, 1-s.Radius
	return mgl32.Vec3{
		mgl32.Clamp(p.X(), lo, hi),
		mgl32.Clamp(p.Y(), lo, MaxSphereHeight),
		mgl32.Clamp(p.Z(), lo, hi),
	}
}

// MoveTo places the sphere, kept inside the pool, and stops it.
func (s *Sphere) MoveTo(p mgl32.Vec3) {
	s.Center = s.clamp(p)
	s.Velocity = mgl32.Vec3{}
}

// SubmergedFraction is 0 above the surface and 1 fully under it.
func (s *Sphere) SubmergedFraction() float32 {
	return mgl32.Clamp((s.Radius-s.Center.Y())/(2*s.Radius), 0, 1)
}

// Step integrates gravity, buoyancy and quadratic drag over dt seconds,
// bouncing off the pool floor.
func (s *Sphere) Step(dt float32) {
	if !(dt > 0) {
		return
	}
	under := s.SubmergedFraction()
	s.Velocity = s.Velocity.Add(Gravity.Mul(dt - 1.1*dt*under))
	if speed := s.Velocity.Len(); speed > 0 {
		drag := under * dt * speed * speed
		if drag > speed {
			drag = speed
		}
		s.Velocity = s.Velocity.Sub(s.Velocity.Mul(drag / speed))
	}
	s.Center = s.Center.Add(s.Velocity.Mul(dt))

	floor := s.Radius - 1
	if s.Center.Y() < floor {
		s.Center[1] = floor
		s.Velocity[1] = float32(math.Abs(float64(s.Velocity.Y()))) * Restitution
	}
	s.Center = s.clamp(s.Center)
}

// Motion returns the displacement the water has not seen yet.
func (s *Sphere) Motion() (old, current mgl32.Vec3) {
	return s.OldCenter, s.Center
}

func (s *Sphere) Commit() {
	s.OldCenter = s.Center
}
