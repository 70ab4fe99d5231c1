// Package water wires the simulation, caustics, reflection and compositor
// into one per-frame pipeline. It is shared by the interactive window and
// the headless snapshot renderer.
package water

import (
	"errors"
	"fmt"
	"math/rand"

	"GopherWater/internal/behaviour"
	"GopherWater/internal/caustics"
	"GopherWater/internal/compositor"
	"GopherWater/internal/config"
	"GopherWater/internal/gpu"
	"GopherWater/internal/heightfield"
	"GopherWater/internal/logger"
	"GopherWater/internal/reflection"
	"GopherWater/internal/renderer"
	"GopherWater/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	// WaterLevel is the rest height of the surface and the mirror plane.
	WaterLevel float32 = 0
	// DropRadius and DropStrength are used for pointer drops.
	DropRadius   float32 = 0.03
	DropStrength float32 = 0.01

	startDropStrength float32 = 0.01
)

// ErrNeedsRebuild is returned by Apply when a setting only takes effect on
// a new pipeline. Every live setting has still been applied.
var ErrNeedsRebuild = errors.New("water: setting requires a new pipeline")

var defaultSphereCenter = mgl32.Vec3{-0.4, -0.75, 0.2}

// FrameInput is what the driver hands over once per frame.
type FrameInput struct {
	DT           float32
	Disturbances []heightfield.Disturbance
}

// Stats counts pipeline work since New.
type Stats struct {
	Frames int
	Steps  int
	Drops  int
	Stamps int
	Device gpu.PoolStats
}

type Pipeline struct {
	dev  gpu.Device
	cfg  config.Config
	grid *gpu.Mesh

	sim  *heightfield.Simulator
	gen  *caustics.Generator
	env  *scene.EnvironmentCache
	refl *reflection.Reflector
	comp *compositor.Compositor

	camera     *renderer.Camera
	sphere     *scene.Sphere
	behaviours *behaviour.Manager

	light     scene.Light
	intensity *atomic.Float64
	specular  *atomic.Float64
	sky       scene.SkyPreset
	tint      compositor.Tint
	paused    *atomic.Bool

	sphereHeld bool
	pending    []heightfield.Disturbance
	frame      compositor.Frame
	stats      Stats
}

// New builds every stage on dev. On failure everything allocated so far is
// released.
func New(dev gpu.Device, cfg config.Config) (p *Pipeline, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var undo gpu.Unwind
	defer func() {
		if err != nil {
			undo.Unwind()
		}
	}()

	p = &Pipeline{
		dev:        dev,
		cfg:        cfg,
		grid:       scene.WaterGrid(cfg.Grid),
		behaviours: behaviour.NewManager(),
		light:      cfg.SceneLight(),
		intensity:  atomic.NewFloat64(float64(cfg.Intensity)),
		specular:   atomic.NewFloat64(float64(cfg.Specular)),
		sky:        cfg.SkyPreset(),
		paused:     atomic.NewBool(cfg.Paused),
	}
	p.setTint(cfg)

	if p.sim, err = heightfield.NewSimulator(dev, cfg.Grid); err != nil {
		return nil, fmt.Errorf("water: %w", err)
	}
	undo.Add(p.sim.Release)
	if p.gen, err = caustics.New(dev, p.grid, cfg.CausticsSize); err != nil {
		return nil, fmt.Errorf("water: %w", err)
	}
	undo.Add(p.gen.Release)
	p.env = scene.NewEnvironmentCache(dev, cfg.EnvSize)
	undo.Add(p.env.Release)
	if _, err = p.env.Get(p.sky, p.light.Direction); err != nil {
		return nil, fmt.Errorf("water: %w", err)
	}
	if p.refl, err = reflection.New(dev, cfg.Width, cfg.Height, WaterLevel); err != nil {
		return nil, fmt.Errorf("water: %w", err)
	}
	undo.Add(p.refl.Release)
	if p.comp, err = compositor.New(dev, p.grid, cfg.Seed); err != nil {
		return nil, fmt.Errorf("water: %w", err)
	}
	undo.Add(p.comp.Release)

	if p.sphere, err = scene.NewSphere(defaultSphereCenter, cfg.SphereRadius); err != nil {
		return nil, fmt.Errorf("water: %w", err)
	}
	p.camera = renderer.NewDefaultCamera(cfg.Width, cfg.Height)
	p.setBehaviours(cfg)
	p.seedDrops(cfg.Seed, cfg.StartDrops)

	logger.Log.Info("Water pipeline ready",
		zap.String("device", dev.Name()),
		zap.Int("grid", cfg.Grid),
		zap.Int("causticsSize", cfg.CausticsSize),
		zap.Stringer("sky", p.sky))
	return p, nil
}

func (p *Pipeline) seedDrops(seed int64, n int) {
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < n; i++ {
		center := mgl32.Vec2{rng.Float32(), rng.Float32()}
		strength := startDropStrength
		if i%2 == 1 {
			strength = -strength
		}
		p.InjectDrop(center, DropRadius, strength)
	}
}

func (p *Pipeline) setBehaviours(cfg config.Config) {
	p.behaviours.Clear()
	if cfg.Rain {
		p.behaviours.Add(behaviour.Create("rain", p, cfg.Seed))
	}
	if cfg.Wander {
		p.behaviours.Add(behaviour.Create("wander", p, cfg.Seed+1))
	}
}

func (p *Pipeline) setTint(cfg config.Config) {
	p.tint = compositor.Tint{
		Enabled: cfg.Tint,
		Shallow: mgl32.Vec3(cfg.Shallow),
		Deep:    mgl32.Vec3(cfg.Deep),
	}
}

// Close releases every stage. The device itself belongs to the caller.
func (p *Pipeline) Close() {
	if p.comp != nil {
		p.comp.Release()
	}
	if p.refl != nil {
		p.refl.Release()
	}
	if p.env != nil {
		p.env.Release()
	}
	if p.gen != nil {
		p.gen.Release()
	}
	if p.sim != nil {
		p.sim.Release()
	}
	p.comp, p.refl, p.env, p.gen, p.sim = nil, nil, nil, nil, nil
	logger.Log.Debug("Water pipeline closed", zap.Int("activeTargets", p.dev.Stats().Active))
}

// Frame advances the simulation and renders one image to the screen.
func (p *Pipeline) Frame(in FrameInput) error {
	if err := p.dev.Err(); err != nil {
		return err
	}
	if !p.paused.Load() {
		if err := p.simulate(in); err != nil {
			return err
		}
	} else if len(in.Disturbances) > 0 {
		logger.Log.Debug("Paused, disturbances dropped", zap.Int("count", len(in.Disturbances)))
	}

	light := p.Light()
	p.gen.SetOccluder(p.sphere.Center, p.sphere.Radius)
	causticsTex, err := p.gen.Update(p.sim.Current(), light.Direction)
	if err != nil {
		return fmt.Errorf("water: %w", err)
	}
	sky, err := p.env.Get(p.sky, light.Direction)
	if err != nil {
		return fmt.Errorf("water: %w", err)
	}

	p.frame = compositor.Frame{
		Camera:       p.camera,
		Water:        p.sim.Current(),
		Caustics:     causticsTex,
		Sky:          sky,
		SphereCenter: p.sphere.Center,
		SphereRadius: p.sphere.Radius,
		Light:        light,
		Tint:         p.tint,
	}
	if !p.camera.Underwater(WaterLevel) {
		if p.frame.Reflection, err = p.refl.Render(p.comp.Environment(&p.frame), p.camera); err != nil {
			return fmt.Errorf("water: %w", err)
		}
	}
	if err := p.comp.Render(p.frame, p.dev.Screen()); err != nil {
		return fmt.Errorf("water: %w", err)
	}
	p.stats.Frames++
	return p.dev.Err()
}

// simulate runs injection, propagation, normals and the sphere stamp.
func (p *Pipeline) simulate(in FrameInput) error {
	p.behaviours.UpdateAll(in.DT)
	if p.cfg.Physics && !p.sphereHeld {
		p.sphere.Step(in.DT)
	}

	for _, d := range in.Disturbances {
		p.InjectDrop(d.Center, d.Radius, d.Strength)
	}
	for _, d := range p.pending {
		if err := p.sim.Inject(d); err != nil {
			return fmt.Errorf("water: %w", err)
		}
		p.stats.Drops++
	}
	p.pending = p.pending[:0]

	delta := p.sim.Delta()
	for i := 0; i < p.cfg.StepsPerFrame; i++ {
		if err := p.sim.Propagate(delta.X(), delta.Y()); err != nil {
			return fmt.Errorf("water: %w", err)
		}
		p.stats.Steps++
	}
	if err := p.sim.RecomputeNormals(delta.X(), delta.Y()); err != nil {
		return fmt.Errorf("water: %w", err)
	}

	old, cur := p.sphere.Motion()
	moved, err := p.sim.StampSphereMotion(old, cur, p.sphere.Radius)
	if err != nil {
		return fmt.Errorf("water: %w", err)
	}
	if moved {
		p.stats.Stamps++
	}
	p.sphere.Commit()
	return nil
}

// InjectDrop queues a drop for the next simulated frame. Drops outside the
// water or with a non-positive radius are ignored.
func (p *Pipeline) InjectDrop(center mgl32.Vec2, radius, strength float32) {
	if !(center.X() >= 0 && center.X() <= 1 && center.Y() >= 0 && center.Y() <= 1) || !(radius > 0) {
		logger.Log.Debug("Drop ignored", zap.Float32("u", center.X()), zap.Float32("v", center.Y()), zap.Float32("radius", radius))
		return
	}
	p.pending = append(p.pending, heightfield.Disturbance{Center: center, Radius: radius, Strength: strength})
}

// SphereFree reports whether idle behaviours may move the sphere.
func (p *Pipeline) SphereFree() bool {
	return !p.sphereHeld && !p.cfg.Physics
}

func (p *Pipeline) MoveSphere(center mgl32.Vec3) {
	p.sphere.MoveTo(center)
}

// PlaceSphere puts the sphere at center as if it had always been there, so
// the next frame stamps no displacement for the move.
func (p *Pipeline) PlaceSphere(center mgl32.Vec3) {
	p.sphere.MoveTo(center)
	p.sphere.Commit()
}

// HoldSphere suspends physics while the sphere is dragged.
func (p *Pipeline) HoldSphere(held bool) {
	p.sphereHeld = held
	if held {
		p.sphere.Velocity = mgl32.Vec3{}
	}
}

func (p *Pipeline) Sphere() scene.Sphere { return *p.sphere }

func (p *Pipeline) Camera() *renderer.Camera { return p.camera }

func (p *Pipeline) Device() gpu.Device { return p.dev }

// Resize follows the window size.
func (p *Pipeline) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	if err := p.dev.Resize(width, height); err != nil {
		return fmt.Errorf("water: %w", err)
	}
	if err := p.refl.Resize(width, height); err != nil {
		return fmt.Errorf("water: %w", err)
	}
	p.camera.SetAspectRatio(width, height)
	p.cfg.Width, p.cfg.Height = width, height
	return nil
}

// SetLightIntensity may be called from any goroutine.
func (p *Pipeline) SetLightIntensity(v float32) {
	p.intensity.Store(float64(mgl32.Clamp(v, 0, config.MaxIntensity)))
}

// SetSpecularIntensity may be called from any goroutine.
func (p *Pipeline) SetSpecularIntensity(v float32) {
	p.specular.Store(float64(mgl32.Clamp(v, 0, config.MaxIntensity)))
}

// SetLightDirection rejects zero and non-finite directions.
func (p *Pipeline) SetLightDirection(d mgl32.Vec3) bool {
	return p.light.SetDirection(d)
}

func (p *Pipeline) SetSkyPreset(s scene.SkyPreset) {
	if s != p.sky {
		logger.Log.Info("Sky preset changed", zap.Stringer("from", p.sky), zap.Stringer("to", s))
	}
	p.sky = s
}

func (p *Pipeline) SetTint(t compositor.Tint) { p.tint = t }

func (p *Pipeline) SetPaused(paused bool) { p.paused.Store(paused) }

func (p *Pipeline) Paused() bool { return p.paused.Load() }

// Light returns the current light with the atomic intensities folded in.
func (p *Pipeline) Light() scene.Light {
	l := p.light
	l.Intensity = float32(p.intensity.Load())
	l.Specular = float32(p.specular.Load())
	return l
}

func (p *Pipeline) Stats() Stats {
	s := p.stats
	s.Device = p.dev.Stats()
	return s
}

// Snapshot returns the live settings as a Config.
func (p *Pipeline) Snapshot() config.Config {
	c := p.cfg
	l := p.Light()
	c.Light = config.Vec3(l.Direction)
	c.LightColor = config.Vec3(l.Color)
	c.Intensity = l.Intensity
	c.Specular = l.Specular
	c.Sky = p.sky.String()
	c.Tint = p.tint.Enabled
	c.Shallow = config.Vec3(p.tint.Shallow)
	c.Deep = config.Vec3(p.tint.Deep)
	c.Paused = p.Paused()
	return c
}

// Apply updates every live setting from c. Grid and texture sizes cannot
// change on a running pipeline; Apply reports ErrNeedsRebuild for those.
func (p *Pipeline) Apply(c config.Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	l := c.SceneLight()
	p.light.SetDirection(l.Direction)
	p.light.Color = l.Color
	p.SetLightIntensity(l.Intensity)
	p.SetSpecularIntensity(l.Specular)
	p.SetSkyPreset(c.SkyPreset())
	p.setTint(c)
	p.SetPaused(c.Paused)
	if c.Rain != p.cfg.Rain || c.Wander != p.cfg.Wander {
		p.setBehaviours(c)
	}

	rebuild := c.Grid != p.cfg.Grid || c.CausticsSize != p.cfg.CausticsSize ||
		c.EnvSize != p.cfg.EnvSize || c.SphereRadius != p.cfg.SphereRadius
	keep := p.cfg
	p.cfg = c
	p.cfg.Width, p.cfg.Height = keep.Width, keep.Height
	if rebuild {
		p.cfg.Grid, p.cfg.CausticsSize, p.cfg.EnvSize, p.cfg.SphereRadius =
			keep.Grid, keep.CausticsSize, keep.EnvSize, keep.SphereRadius
		return ErrNeedsRebuild
	}
	return nil
}
