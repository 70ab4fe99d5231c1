package water

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"GopherWater/internal/compositor"
	"GopherWater/internal/config"
	"GopherWater/internal/gpu"
	"GopherWater/internal/gpu/cpu"
	"GopherWater/internal/heightfield"
	"GopherWater/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	c := *config.Default()
	c.Grid = 32
	c.Width, c.Height = 64, 48
	c.CausticsSize = 64
	c.EnvSize = 16
	c.StartDrops = 0
	c.Physics = false
	return c
}

func newTestPipeline(t *testing.T, c config.Config) (*Pipeline, *cpu.Device) {
	t.Helper()
	dev, err := cpu.New(cpu.Options{Workers: 4, ScreenWidth: c.Width, ScreenHeight: c.Height})
	require.NoError(t, err)
	p, err := New(dev, c)
	require.NoError(t, err)
	t.Cleanup(func() {
		p.Close()
		dev.Close()
	})
	return p, dev
}

func field(t *testing.T, p *Pipeline, dev *cpu.Device) heightfield.Field {
	t.Helper()
	pix, err := dev.Pixels(p.sim.Current())
	require.NoError(t, err)
	return heightfield.FieldFromPixels(p.sim.Size(), pix)
}

func TestFrameRendersFiniteImage(t *testing.T) {
	p, dev := newTestPipeline(t, testConfig())
	p.InjectDrop(mgl32.Vec2{0.5, 0.5}, 0.1, 0.05)
	require.NoError(t, p.Frame(FrameInput{DT: 1.0 / 60}))

	pix, err := dev.Pixels(dev.Screen())
	require.NoError(t, err)
	for i, v := range pix {
		if math.IsNaN(float64(v)) || v < 0 || v > 1 {
			t.Fatalf("Pixel component %d is %f", i, v)
		}
	}
	s := p.Stats()
	assert.Equal(t, 1, s.Frames)
	assert.Equal(t, 1, s.Drops)
	assert.Equal(t, 2, s.Steps)
	assert.Greater(t, s.Device.Active, 0)
}

func TestFrameOrderAdvancesSimulation(t *testing.T) {
	p, dev := newTestPipeline(t, testConfig())
	phase := p.sim.Phase()
	require.NoError(t, p.Frame(FrameInput{
		DT:           1.0 / 60,
		Disturbances: []heightfield.Disturbance{{Center: mgl32.Vec2{0.5, 0.5}, Radius: 0.2, Strength: 0.1}},
	}))
	// drop, two propagates and normals: four swaps
	assert.Equal(t, phase, p.sim.Phase())

	f := field(t, p, dev)
	assert.True(t, f.Finite())
	assert.Greater(t, f.MaxAbsHeight(), 0.0)

	prev := f.Energy()
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Frame(FrameInput{DT: 1.0 / 60}))
		e := field(t, p, dev).Energy()
		assert.Less(t, e, prev, "energy must decay at frame %d", i)
		prev = e
	}
}

func TestPausedSkipsSimulation(t *testing.T) {
	c := testConfig()
	c.Paused = true
	p, dev := newTestPipeline(t, c)
	before := field(t, p, dev)
	phase := p.sim.Phase()

	require.NoError(t, p.Frame(FrameInput{
		DT:           1.0 / 60,
		Disturbances: []heightfield.Disturbance{{Center: mgl32.Vec2{0.5, 0.5}, Radius: 0.2, Strength: 0.1}},
	}))
	assert.Equal(t, phase, p.sim.Phase())
	assert.Equal(t, before, field(t, p, dev))
	assert.Equal(t, 1, p.Stats().Frames)
	assert.Zero(t, p.Stats().Steps)

	p.SetPaused(false)
	require.NoError(t, p.Frame(FrameInput{DT: 1.0 / 60}))
	assert.Equal(t, 2, p.Stats().Steps)
}

func TestDropsOutsideWaterAreIgnored(t *testing.T) {
	p, _ := newTestPipeline(t, testConfig())
	p.InjectDrop(mgl32.Vec2{-0.1, 0.5}, 0.03, 0.01)
	p.InjectDrop(mgl32.Vec2{0.5, 1.2}, 0.03, 0.01)
	p.InjectDrop(mgl32.Vec2{0.5, 0.5}, 0, 0.01)
	p.InjectDrop(mgl32.Vec2{float32(math.NaN()), 0.5}, 0.03, 0.01)
	assert.Empty(t, p.pending)

	p.InjectDrop(mgl32.Vec2{1, 0}, 0.03, 0.01)
	assert.Len(t, p.pending, 1)
}

func TestStartDropsAreSeeded(t *testing.T) {
	c := testConfig()
	c.StartDrops = 20
	a, _ := newTestPipeline(t, c)
	b, _ := newTestPipeline(t, c)
	require.Len(t, a.pending, 20)
	assert.Equal(t, a.pending, b.pending)
}

func TestSphereMotionIsStampedAndCommitted(t *testing.T) {
	p, _ := newTestPipeline(t, testConfig())
	p.MoveSphere(mgl32.Vec3{0.3, -0.5, 0.3})
	require.NoError(t, p.Frame(FrameInput{DT: 1.0 / 60}))
	assert.Equal(t, 1, p.Stats().Stamps)
	s := p.Sphere()
	assert.Equal(t, s.Center, s.OldCenter)

	require.NoError(t, p.Frame(FrameInput{DT: 1.0 / 60}))
	assert.Equal(t, 1, p.Stats().Stamps, "a still sphere is not stamped")
}

func TestPlacedSphereIsNotStamped(t *testing.T) {
	p, dev := newTestPipeline(t, testConfig())
	p.PlaceSphere(mgl32.Vec3{0.3, -0.5, 0.3})
	s := p.Sphere()
	assert.Equal(t, s.Center, s.OldCenter)

	require.NoError(t, p.Frame(FrameInput{DT: 1.0 / 60}))
	assert.Zero(t, p.Stats().Stamps)
	assert.Zero(t, field(t, p, dev).MaxAbsHeight(), "placing the sphere must not disturb still water")
}

func TestPhysicsRespectsHold(t *testing.T) {
	c := testConfig()
	c.Physics = true
	p, _ := newTestPipeline(t, c)
	p.MoveSphere(mgl32.Vec3{0, 0.8, 0})
	p.HoldSphere(true)
	require.NoError(t, p.Frame(FrameInput{DT: 0.1}))
	assert.InDelta(t, 0.8, p.Sphere().Center.Y(), 1e-6)
	assert.False(t, p.SphereFree())

	p.HoldSphere(false)
	require.NoError(t, p.Frame(FrameInput{DT: 0.1}))
	assert.Less(t, p.Sphere().Center.Y(), float32(0.8))
}

func TestIntensitySettersAreSafeAcrossGoroutines(t *testing.T) {
	p, _ := newTestPipeline(t, testConfig())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.SetLightIntensity(float32(i))
				p.SetSpecularIntensity(float32(j) / 50)
			}
		}(i)
	}
	wg.Wait()

	l := p.Light()
	assert.LessOrEqual(t, l.Intensity, config.MaxIntensity)
	assert.GreaterOrEqual(t, l.Intensity, float32(0))
	assert.InDelta(t, 99.0/50, l.Specular, 1e-6)

	p.SetLightIntensity(-3)
	assert.Zero(t, p.Light().Intensity)
}

func TestSetLightDirectionRejectsZero(t *testing.T) {
	p, _ := newTestPipeline(t, testConfig())
	before := p.Light().Direction
	assert.False(t, p.SetLightDirection(mgl32.Vec3{}))
	assert.Equal(t, before, p.Light().Direction)
	assert.True(t, p.SetLightDirection(mgl32.Vec3{0, 3, 0}))
	assert.InDelta(t, 1, p.Light().Direction.Y(), 1e-6)
}

func TestSnapshotApplyRoundTrip(t *testing.T) {
	p, _ := newTestPipeline(t, testConfig())
	p.SetSkyPreset(scene.SkySunset)
	p.SetTint(compositor.Tint{Enabled: true, Shallow: mgl32.Vec3{1, 1, 1}, Deep: mgl32.Vec3{0, 0, 0.5}})
	p.SetLightIntensity(2)

	snap := p.Snapshot()
	assert.Equal(t, "sunset", snap.Sky)
	assert.True(t, snap.Tint)
	assert.InDelta(t, 2, snap.Intensity, 1e-6)

	q, _ := newTestPipeline(t, testConfig())
	require.NoError(t, q.Apply(snap))
	got := q.Snapshot()
	for i := range snap.Light {
		assert.InDelta(t, snap.Light[i], got.Light[i], 1e-6)
	}
	got.Light = snap.Light
	assert.Equal(t, snap, got)

	snap.Grid = 64
	snap.Rain = true
	assert.True(t, errors.Is(q.Apply(snap), ErrNeedsRebuild))
	assert.Equal(t, 32, q.Snapshot().Grid)
	assert.True(t, q.Snapshot().Rain)
	assert.Equal(t, 1, q.behaviours.Len())

	snap.Intensity = -1
	assert.True(t, errors.Is(q.Apply(snap), config.ErrInvalid))
}

func TestRainFeedsTheSimulation(t *testing.T) {
	c := testConfig()
	c.Rain = true
	p, _ := newTestPipeline(t, c)
	for i := 0; i < 30; i++ {
		require.NoError(t, p.Frame(FrameInput{DT: 1.0 / 30}))
	}
	assert.Greater(t, p.Stats().Drops, 0)
}

func TestUnderwaterCameraSkipsReflection(t *testing.T) {
	p, _ := newTestPipeline(t, testConfig())
	p.Camera().Position = mgl32.Vec3{0, -0.5, 0.5}
	p.Camera().Target = mgl32.Vec3{0, -0.5, -0.5}
	require.NoError(t, p.Frame(FrameInput{DT: 1.0 / 60}))
	assert.Nil(t, p.frame.Reflection.Texture)
}

func TestResizeFollowsWindow(t *testing.T) {
	p, dev := newTestPipeline(t, testConfig())
	require.NoError(t, p.Resize(32, 16))
	w, h := dev.Screen().Size()
	assert.Equal(t, 32, w)
	assert.Equal(t, 16, h)
	assert.InDelta(t, 2, p.Camera().AspectRatio, 1e-6)
	require.NoError(t, p.Frame(FrameInput{DT: 1.0 / 60}))
}

func TestLostDeviceIsFatal(t *testing.T) {
	p, dev := newTestPipeline(t, testConfig())
	dev.Lose()
	err := p.Frame(FrameInput{DT: 1.0 / 60})
	assert.True(t, gpu.IsFatal(err), "expected a fatal error, got %v", err)
}

// failingDevice refuses allocations once its budget is spent.
type failingDevice struct {
	*cpu.Device
	left int
}

func (d *failingDevice) NewTarget(spec gpu.TargetSpec) (gpu.Target, error) {
	if d.left <= 0 {
		return nil, fmt.Errorf("%w: out of test budget for %s", gpu.ErrResource, spec.Name)
	}
	d.left--
	return d.Device.NewTarget(spec)
}

func TestNewReleasesEverythingOnFailure(t *testing.T) {
	for budget := 0; budget < 6; budget++ {
		inner, err := cpu.New(cpu.Options{Workers: 2, ScreenWidth: 64, ScreenHeight: 48})
		require.NoError(t, err)
		dev := &failingDevice{Device: inner, left: budget}

		p, err := New(dev, testConfig())
		assert.Nil(t, p)
		assert.True(t, errors.Is(err, gpu.ErrResource), "budget %d: got %v", budget, err)
		assert.Zero(t, inner.Stats().Active, "budget %d leaked targets", budget)
		inner.Close()
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	dev, err := cpu.New(cpu.Options{ScreenWidth: 8, ScreenHeight: 8})
	require.NoError(t, err)
	defer dev.Close()
	c := testConfig()
	c.Grid = 1
	_, err = New(dev, c)
	assert.True(t, errors.Is(err, config.ErrInvalid))
}
