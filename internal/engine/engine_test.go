package engine

import (
	"errors"
	"math"
	"testing"

	"GopherWater/internal/config"
	"GopherWater/internal/gpu"
	"GopherWater/internal/gpu/cpu"
	"GopherWater/internal/renderer"
	"GopherWater/internal/scene"
	"GopherWater/internal/water"

	"github.com/go-gl/mathgl/mgl32"
)

type fakeScene struct {
	cam    *renderer.Camera
	sphere scene.Sphere
	held   bool
	paused bool
	sky    scene.SkyPreset
	moves  []mgl32.Vec3
}

func newFakeScene(sphereCenter mgl32.Vec3) *fakeScene {
	cam := renderer.NewDefaultCamera(100, 100)
	cam.Position = mgl32.Vec3{0, 3, 3}
	cam.Target = mgl32.Vec3{0, 0, 0}
	return &fakeScene{cam: cam, sphere: scene.Sphere{Center: sphereCenter, Radius: 0.25}}
}

func (f *fakeScene) Camera() *renderer.Camera { return f.cam }
func (f *fakeScene) Sphere() scene.Sphere     { return f.sphere }
func (f *fakeScene) HoldSphere(held bool)     { f.held = held }
func (f *fakeScene) Paused() bool             { return f.paused }
func (f *fakeScene) SetPaused(p bool)         { f.paused = p }
func (f *fakeScene) SetSkyPreset(s scene.SkyPreset) {
	f.sky = s
}

func (f *fakeScene) MoveSphere(c mgl32.Vec3) {
	f.moves = append(f.moves, c)
	f.sphere.Center = c
}

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-3 }

func TestClickOnWaterDropsOncePerSample(t *testing.T) {
	sc := newFakeScene(mgl32.Vec3{0.8, -0.75, 0.8})
	s := NewSession(100, 100)

	s.Button(ButtonLeft, true, 50, 50)
	drops := s.Sample(sc)
	if len(drops) != 1 {
		t.Fatalf("Expected one drop, got %d", len(drops))
	}
	d := drops[0]
	if !near(d.Center.X(), 0.5) || !near(d.Center.Y(), 0.5) {
		t.Errorf("Expected a drop at the pool centre, got %v", d.Center)
	}
	if d.Radius != water.DropRadius || d.Strength != water.DropStrength {
		t.Errorf("Unexpected drop size %f strength %f", d.Radius, d.Strength)
	}
	if s.Mode() != ModeDrops {
		t.Errorf("Expected drops mode, got %v", s.Mode())
	}

	if got := s.Sample(sc); len(got) != 0 {
		t.Errorf("A still pointer should not drop again, got %d", len(got))
	}

	s.CursorMove(51, 50)
	s.CursorMove(52, 50)
	if got := s.Sample(sc); len(got) != 1 {
		t.Errorf("Several moves between frames make one drop, got %d", len(got))
	}

	s.Button(ButtonLeft, false, 52, 50)
	s.Sample(sc)
	s.CursorMove(60, 50)
	if got := s.Sample(sc); len(got) != 0 || s.Mode() != ModeNone {
		t.Errorf("Released pointer should not drop, got %d in mode %v", len(got), s.Mode())
	}
}

func TestPointerOutsidePoolIsIgnored(t *testing.T) {
	sc := newFakeScene(mgl32.Vec3{0.8, -0.75, 0.8})
	s := NewSession(100, 100)

	s.Button(ButtonLeft, true, 50, 0)
	if got := s.Sample(sc); len(got) != 0 {
		t.Errorf("Hits beyond the pool must be ignored, got %v", got)
	}

	s.Resize(0, 0)
	s.CursorMove(50, 50)
	if got := s.Sample(sc); len(got) != 0 {
		t.Errorf("No rays without a window, got %v", got)
	}
}

func TestDragMovesSphereInViewPlane(t *testing.T) {
	sc := newFakeScene(mgl32.Vec3{0, 0, 0})
	s := NewSession(100, 100)

	s.Button(ButtonLeft, true, 50, 50)
	if drops := s.Sample(sc); len(drops) != 0 {
		t.Errorf("Grabbing the sphere must not drop, got %d", len(drops))
	}
	if s.Mode() != ModeDragSphere || !sc.held {
		t.Fatalf("Expected the sphere to be held, mode %v", s.Mode())
	}

	s.CursorMove(60, 50)
	s.Sample(sc)
	if len(sc.moves) != 1 {
		t.Fatalf("Expected one move, got %d", len(sc.moves))
	}
	m := sc.moves[0]
	if !(m.X() > 0) || !near(m.Y(), 0) || !near(m.Z(), 0) {
		t.Errorf("Dragging right should move along +x only, got %v", m)
	}

	s.Button(ButtonLeft, false, 60, 50)
	s.Sample(sc)
	if sc.held || s.Mode() != ModeNone {
		t.Error("Release should drop the sphere")
	}
}

func TestRightDragOrbitsAndScrollZooms(t *testing.T) {
	sc := newFakeScene(mgl32.Vec3{0.8, -0.75, 0.8})
	yaw, dist := sc.cam.AngleY, sc.cam.Distance
	s := NewSession(100, 100)

	s.Button(ButtonRight, true, 10, 10)
	s.CursorMove(30, 10)
	s.Scroll(2)
	if drops := s.Sample(sc); len(drops) != 0 {
		t.Errorf("Orbiting must not drop, got %d", len(drops))
	}
	if want := yaw - 20*sc.cam.Sensitivity; !near(sc.cam.AngleY, want) {
		t.Errorf("Expected yaw %f, got %f", want, sc.cam.AngleY)
	}
	if !(sc.cam.Distance < dist) {
		t.Errorf("Scrolling up should zoom in, distance %f -> %f", dist, sc.cam.Distance)
	}

	s.Button(ButtonRight, false, 30, 10)
	s.CursorMove(80, 10)
	before := sc.cam.AngleY
	s.Sample(sc)
	if sc.cam.AngleY != before {
		t.Error("Released right button must stop orbiting")
	}
}

func TestKeysToggleControls(t *testing.T) {
	sc := newFakeScene(mgl32.Vec3{})
	s := NewSession(100, 100)
	s.Press(KeyPause)
	s.Press(KeySky3)
	s.Sample(sc)
	if !sc.paused {
		t.Error("Space should pause")
	}
	if sc.sky != scene.SkyCloudy {
		t.Errorf("Key 3 should select the cloudy sky, got %v", sc.sky)
	}
	s.Press(KeyPause)
	s.Sample(sc)
	if sc.paused {
		t.Error("Space again should resume")
	}
}

type testBuilder struct {
	t      *testing.T
	builds int
	dev    *cpu.Device
}

func (b *testBuilder) build() (gpu.Device, *water.Pipeline, error) {
	c := *config.Default()
	c.Grid, c.Width, c.Height = 16, 32, 24
	c.CausticsSize, c.EnvSize, c.StartDrops = 32, 8, 0
	c.Physics = false
	dev, err := cpu.New(cpu.Options{Workers: 2, ScreenWidth: c.Width, ScreenHeight: c.Height})
	if err != nil {
		return nil, nil, err
	}
	pipe, err := water.New(dev, c)
	if err != nil {
		dev.Close()
		return nil, nil, err
	}
	b.builds++
	b.dev = dev
	return dev, pipe, nil
}

func TestRunnerRebuildsAfterDeviceLoss(t *testing.T) {
	b := &testBuilder{t: t}
	r, err := NewRunner(1, b.build)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	defer r.Close()

	if err := r.Frame(water.FrameInput{DT: 1.0 / 60}); err != nil {
		t.Fatalf("Frame: %v", err)
	}
	r.Pipeline().SetSkyPreset(scene.SkySunset)
	r.Pipeline().Camera().AngleY = 42
	r.Pipeline().MoveSphere(mgl32.Vec3{0.3, -0.5, 0.3})
	if err := r.Frame(water.FrameInput{DT: 1.0 / 60}); err != nil {
		t.Fatalf("Frame: %v", err)
	}
	moved := r.Pipeline().Sphere().Center
	old := r.Pipeline()

	b.dev.Lose()
	if err := r.Frame(water.FrameInput{DT: 1.0 / 60}); err != nil {
		t.Fatalf("The first loss should be recovered, got %v", err)
	}
	if b.builds != 2 || r.Recreated() != 1 || r.Pipeline() == old {
		t.Fatalf("Expected a rebuilt pipeline, builds %d recreated %d", b.builds, r.Recreated())
	}
	if got := r.Pipeline().Snapshot().Sky; got != "sunset" {
		t.Errorf("Settings should survive a rebuild, sky %q", got)
	}
	if r.Pipeline().Camera().AngleY != 42 {
		t.Error("The camera should survive a rebuild")
	}
	if got := r.Pipeline().Sphere(); got.Center != moved || got.OldCenter != moved {
		t.Errorf("The sphere should be restored in place at %v, got %v from %v", moved, got.Center, got.OldCenter)
	}
	if err := r.Frame(water.FrameInput{DT: 1.0 / 60}); err != nil {
		t.Errorf("Frame after rebuild: %v", err)
	}
	if n := r.Pipeline().Stats().Stamps; n != 0 {
		t.Errorf("A restored sphere must not stamp into fresh water, got %d stamps", n)
	}

	b.dev.Lose()
	err = r.Frame(water.FrameInput{DT: 1.0 / 60})
	if !errors.Is(err, gpu.ErrContextLost) {
		t.Errorf("Expected the loss to be reported once the budget is spent, got %v", err)
	}
	if b.builds != 2 {
		t.Errorf("No rebuild beyond the budget, got %d builds", b.builds)
	}
}

func TestRunnerClosed(t *testing.T) {
	b := &testBuilder{t: t}
	r, err := NewRunner(0, b.build)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	r.Close()
	if err := r.Frame(water.FrameInput{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}
