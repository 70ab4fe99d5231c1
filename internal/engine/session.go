package engine

import (
	"GopherWater/internal/heightfield"
	"GopherWater/internal/logger"
	"GopherWater/internal/renderer"
	"GopherWater/internal/scene"
	"GopherWater/internal/water"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Mode is what the left button is currently doing.
type Mode int

const (
	ModeNone Mode = iota
	ModeDrops
	ModeDragSphere
)

func (m Mode) String() string {
	switch m {
	case ModeDrops:
		return "drops"
	case ModeDragSphere:
		return "drag"
	}
	return "none"
}

type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
)

type Key int

const (
	KeyPause Key = iota
	KeySky1
	KeySky2
	KeySky3
	KeySky4
)

// Scene is the part of the pipeline a Session drives.
type Scene interface {
	Camera() *renderer.Camera
	Sphere() scene.Sphere
	HoldSphere(held bool)
	MoveSphere(center mgl32.Vec3)
	Paused() bool
	SetPaused(paused bool)
	SetSkyPreset(s scene.SkyPreset)
}

// Session is the interaction state between frames. Window callbacks only
// record into it; Sample applies what was recorded.
type Session struct {
	width, height int

	mode        Mode
	prevHit     mgl32.Vec3
	planeNormal mgl32.Vec3

	cursorX, cursorY float32
	moved            bool
	pressed          bool
	released         bool

	orbiting     bool
	orbitX       float32
	orbitY       float32
	orbitDX      float32
	orbitDY      float32
	scroll       float32
	keys         []Key
	disturbances []heightfield.Disturbance
}

func NewSession(width, height int) *Session {
	return &Session{width: width, height: height}
}

func (s *Session) Mode() Mode { return s.mode }

func (s *Session) Resize(width, height int) {
	s.width, s.height = width, height
}

func (s *Session) CursorMove(x, y float64) {
	fx, fy := float32(x), float32(y)
	if s.orbiting {
		s.orbitDX += fx - s.orbitX
		s.orbitDY += s.orbitY - fy
		s.orbitX, s.orbitY = fx, fy
	}
	s.cursorX, s.cursorY = fx, fy
	s.moved = true
}

func (s *Session) Button(b Button, down bool, x, y float64) {
	s.CursorMove(x, y)
	switch b {
	case ButtonLeft:
		if down {
			s.pressed = true
		} else {
			s.released = true
		}
	case ButtonRight:
		s.orbiting = down
		s.orbitX, s.orbitY = float32(x), float32(y)
	}
}

func (s *Session) Scroll(dy float64) {
	s.scroll += float32(dy)
}

func (s *Session) Press(k Key) {
	s.keys = append(s.keys, k)
}

// Sample applies everything recorded since the last call and returns the
// drops for this frame. Call it once per frame.
func (s *Session) Sample(sc Scene) []heightfield.Disturbance {
	cam := sc.Camera()
	for _, k := range s.keys {
		switch k {
		case KeyPause:
			sc.SetPaused(!sc.Paused())
		case KeySky1, KeySky2, KeySky3, KeySky4:
			sc.SetSkyPreset(scene.SkyPreset(k - KeySky1))
		}
	}
	s.keys = s.keys[:0]

	if s.orbitDX != 0 || s.orbitDY != 0 {
		cam.ProcessMouseMovement(s.orbitDX, s.orbitDY)
		s.orbitDX, s.orbitDY = 0, 0
	}
	if s.scroll != 0 {
		cam.Zoom(s.scroll * 0.25)
		s.scroll = 0
	}

	s.disturbances = s.disturbances[:0]
	if s.pressed {
		s.pressed = false
		s.begin(sc, cam)
	} else if s.moved {
		s.drag(sc, cam)
	}
	s.moved = false

	if s.released {
		s.released = false
		if s.mode == ModeDragSphere {
			sc.HoldSphere(false)
		}
		s.mode = ModeNone
	}
	return s.disturbances
}

func (s *Session) ray(cam *renderer.Camera) (renderer.Ray, bool) {
	return renderer.ScreenToRay(cam, s.cursorX, s.cursorY, s.width, s.height)
}

func (s *Session) begin(sc Scene, cam *renderer.Camera) {
	ray, ok := s.ray(cam)
	if !ok {
		return
	}
	sphere := sc.Sphere()
	if hit, _, point := renderer.RayIntersectSphere(ray, sphere.Center, sphere.Radius); hit {
		s.mode = ModeDragSphere
		s.prevHit = point
		s.planeNormal = cam.Front().Mul(-1)
		sc.HoldSphere(true)
		logger.Log.Debug("Sphere grabbed", zap.Float32("x", point.X()), zap.Float32("y", point.Y()), zap.Float32("z", point.Z()))
		return
	}
	s.mode = ModeDrops
	s.drop(ray)
}

func (s *Session) drag(sc Scene, cam *renderer.Camera) {
	if s.mode == ModeNone {
		return
	}
	ray, ok := s.ray(cam)
	if !ok {
		return
	}
	switch s.mode {
	case ModeDrops:
		s.drop(ray)
	case ModeDragSphere:
		denom := s.planeNormal.Dot(ray.Direction)
		if denom > -renderer.RayEpsilon && denom < renderer.RayEpsilon {
			return
		}
		t := -s.planeNormal.Dot(ray.Origin.Sub(s.prevHit)) / denom
		if !(t > 0) {
			return
		}
		next := ray.At(t)
		sc.MoveSphere(sc.Sphere().Center.Add(next.Sub(s.prevHit)))
		s.prevHit = next
	}
}

// drop hits the rest plane and records a drop there. Hits outside the
// water surface are ignored.
func (s *Session) drop(ray renderer.Ray) {
	hit, _, point := renderer.RayIntersectPlane(ray, water.WaterLevel)
	if !hit {
		return
	}
	uv := mgl32.Vec2{point.X()*0.5 + 0.5, point.Z()*0.5 + 0.5}
	if uv.X() < 0 || uv.X() > 1 || uv.Y() < 0 || uv.Y() > 1 {
		return
	}
	s.disturbances = append(s.disturbances, heightfield.Disturbance{
		Center:   uv,
		Radius:   water.DropRadius,
		Strength: water.DropStrength,
	})
}
