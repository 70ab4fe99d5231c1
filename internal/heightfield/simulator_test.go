package heightfield

import (
	"math"
	"testing"

	"GopherWater/internal/gpu"
	"GopherWater/internal/gpu/cpu"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSim(t *testing.T, size int) (*Simulator, *cpu.Device) {
	t.Helper()
	dev, err := cpu.New(cpu.Options{Workers: 4})
	require.NoError(t, err)
	sim, err := NewSimulator(dev, size)
	require.NoError(t, err)
	t.Cleanup(func() {
		sim.Release()
		dev.Close()
	})
	return sim, dev
}

func field(t *testing.T, sim *Simulator, dev *cpu.Device) Field {
	t.Helper()
	pix, err := dev.Pixels(sim.Current())
	require.NoError(t, err)
	return FieldFromPixels(sim.Size(), pix)
}

func pixels(t *testing.T, sim *Simulator, dev *cpu.Device) []float32 {
	t.Helper()
	pix, err := dev.Pixels(sim.Current())
	require.NoError(t, err)
	return pix
}

func TestZeroStrengthIsNoOp(t *testing.T) {
	sim, dev := newSim(t, 64)
	require.NoError(t, sim.InjectDisturbance(mgl32.Vec2{0.3, 0.6}, 0.1, 0.05))
	require.NoError(t, sim.Propagate(sim.Delta()[0], sim.Delta()[1]))
	before := pixels(t, sim, dev)

	require.NoError(t, sim.InjectDisturbance(mgl32.Vec2{0.5, 0.5}, 0.2, 0))

	assert.Equal(t, before, pixels(t, sim, dev), "a zero-strength drop must not change the field")
}

func TestDisturbanceLocality(t *testing.T) {
	sim, dev := newSim(t, 64)
	require.NoError(t, sim.InjectDisturbance(mgl32.Vec2{0.2, 0.2}, 0.15, 0.03))
	before := pixels(t, sim, dev)

	center := mgl32.Vec2{0.6, 0.55}
	const radius = 0.12
	require.NoError(t, sim.InjectDisturbance(center, radius, 0.02))
	after := pixels(t, sim, dev)

	changed := 0
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			i := (y*64 + x) * 4
			dist := center.Sub(texelUV(x, y, 64)).Len()
			if dist >= radius {
				if after[i] != before[i] {
					t.Fatalf("Cell (%d,%d) at distance %f changed from %f to %f", x, y, dist, before[i], after[i])
				}
			} else if after[i] != before[i] {
				changed++
			}
		}
	}
	assert.Positive(t, changed, "cells inside the radius should be raised")
}

func TestInvalidRadiusRejected(t *testing.T) {
	sim, _ := newSim(t, 16)
	phase := sim.Phase()

	assert.ErrorIs(t, sim.InjectDisturbance(mgl32.Vec2{0.5, 0.5}, 0, 1), ErrInvalidRadius)
	_, err := sim.StampSphereMotion(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, -1)
	assert.ErrorIs(t, err, ErrInvalidRadius)
	assert.Equal(t, phase, sim.Phase(), "rejected operations must not swap buffers")
}

func TestDampedStability(t *testing.T) {
	sim, dev := newSim(t, 128)
	require.NoError(t, sim.InjectDisturbance(mgl32.Vec2{0.5, 0.5}, 0.03, 0.02))
	initial := field(t, sim, dev)
	peak := initial.MaxAbsHeight()

	energies := []float64{initial.Energy()}
	require.Positive(t, energies[0])

	dx, dy := sim.Delta()[0], sim.Delta()[1]
	for step := 1; step <= 500; step++ {
		require.NoError(t, sim.Propagate(dx, dy))
		f := field(t, sim, dev)
		require.True(t, f.Finite(), "step %d produced a non-finite value", step)
		if f.MaxAbsHeight() > peak*(1+1e-6) {
			t.Fatalf("Step %d: peak %g exceeds the injected peak %g", step, f.MaxAbsHeight(), peak)
		}
		e := f.Energy()
		if e >= energies[step-1] {
			t.Fatalf("Step %d: energy %g did not decrease from %g", step, e, energies[step-1])
		}
		energies = append(energies, e)
	}

	for start := 0; start+50 <= 500; start++ {
		if energies[start+50] >= energies[start] {
			t.Fatalf("Energy did not decay over the window starting at step %d", start)
		}
	}

	ratio := energies[500] / energies[499]
	assert.InDelta(t, float64(Damping), ratio, 1e-4, "energy should decay by the damping factor")
	assert.Less(t, energies[500], energies[0]*0.1)
}

func TestFlatFieldNormals(t *testing.T) {
	sim, dev := newSim(t, 32)
	require.NoError(t, sim.RecomputeNormals(sim.Delta()[0], sim.Delta()[1]))

	pix := pixels(t, sim, dev)
	for i := 0; i < len(pix); i += 4 {
		if pix[i+2] != 0 || pix[i+3] != 0 {
			t.Fatalf("Texel %d has horizontal normal (%f, %f)", i/4, pix[i+2], pix[i+3])
		}
	}
}

func TestNormalsTiltAgainstSlope(t *testing.T) {
	sim, dev := newSim(t, 16)
	ramp := make([]float32, 16*16*4)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			ramp[(y*16+x)*4] = float32(x) * 0.01
		}
	}
	require.NoError(t, dev.Upload(sim.Current(), ramp))
	require.NoError(t, sim.RecomputeNormals(sim.Delta()[0], sim.Delta()[1]))

	c, err := dev.Texel(sim.Current(), 8, 8)
	require.NoError(t, err)
	assert.Less(t, c[2], float32(0), "normal x should point down the slope")
	assert.InDelta(t, 0, c[3], 1e-6)
	ny := math.Sqrt(float64(1 - c[2]*c[2] - c[3]*c[3]))
	assert.Greater(t, ny, 0.9)
}

func TestSphereStampRoundTrip(t *testing.T) {
	sim, dev := newSim(t, 64)
	require.NoError(t, sim.InjectDisturbance(mgl32.Vec2{0.4, 0.5}, 0.2, 0.02))
	before := pixels(t, sim, dev)

	a := mgl32.Vec3{-0.1, 0.05, 0.1}
	b := mgl32.Vec3{0.2, -0.1, -0.05}
	const radius = 0.25

	stamped, err := sim.StampSphereMotion(a, b, radius)
	require.NoError(t, err)
	require.True(t, stamped)
	moved := pixels(t, sim, dev)

	stamped, err = sim.StampSphereMotion(b, a, radius)
	require.NoError(t, err)
	require.True(t, stamped)
	after := pixels(t, sim, dev)

	diff := 0.0
	for i := 0; i < len(before); i += 4 {
		diff = math.Max(diff, math.Abs(float64(moved[i]-before[i])))
		assert.InDelta(t, before[i], after[i], 1e-6, "texel %d", i/4)
	}
	assert.Greater(t, diff, 1e-4, "moving the sphere should displace water")
}

func TestSphereStampSkipsTinyMoves(t *testing.T) {
	sim, _ := newSim(t, 16)
	phase := sim.Phase()

	stamped, err := sim.StampSphereMotion(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{MoveEpsilon / 2, 0, 0}, 0.25)
	require.NoError(t, err)
	assert.False(t, stamped)
	assert.Equal(t, phase, sim.Phase())
}

func TestSphereAboveWaterDisplacesNothing(t *testing.T) {
	assert.Zero(t, VolumeInSphere(mgl32.Vec2{0.5, 0.5}, mgl32.Vec3{0, 1.5, 0}, 0.25))
	assert.Positive(t, VolumeInSphere(mgl32.Vec2{0.5, 0.5}, mgl32.Vec3{0, 0, 0}, 0.25))
}

func TestEveryOperationTogglesPhase(t *testing.T) {
	sim, _ := newSim(t, 16)
	d := sim.Delta()

	ops := []func() error{
		func() error { return sim.InjectDisturbance(mgl32.Vec2{0.5, 0.5}, 0.1, 0.01) },
		func() error { return sim.Propagate(d[0], d[1]) },
		func() error { return sim.RecomputeNormals(d[0], d[1]) },
		func() error {
			_, err := sim.StampSphereMotion(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0.1, 0, 0}, 0.25)
			return err
		},
	}
	for i, op := range ops {
		phase, current := sim.Phase(), sim.Current()
		require.NoError(t, op())
		assert.NotEqual(t, phase, sim.Phase(), "operation %d should flip the phase", i)
		assert.NotSame(t, current, sim.Current(), "operation %d should change the current target", i)
	}
}

func TestCenterSpreadsAfterOnePropagate(t *testing.T) {
	sim, dev := newSim(t, 128)
	require.NoError(t, sim.InjectDisturbance(mgl32.Vec2{0.5, 0.5}, 0.03, 0.02))
	injected, err := dev.Texel(sim.Current(), 64, 64)
	require.NoError(t, err)
	energy := field(t, sim, dev).Energy()

	require.NoError(t, sim.Propagate(sim.Delta()[0], sim.Delta()[1]))
	spread, err := dev.Texel(sim.Current(), 64, 64)
	require.NoError(t, err)
	assert.Less(t, spread[0], injected[0], "the centre should fall once energy spreads")

	for step := 0; step < 20; step++ {
		e := field(t, sim, dev).Energy()
		require.Less(t, e, energy, "step %d", step)
		energy = e
		require.NoError(t, sim.Propagate(sim.Delta()[0], sim.Delta()[1]))
	}
}

func TestRaisedCosineProfile(t *testing.T) {
	assert.InDelta(t, 1, RaisedCosine(0, 0.1), 1e-7)
	assert.InDelta(t, 0.5, RaisedCosine(0.05, 0.1), 1e-6)
	assert.Zero(t, RaisedCosine(0.1, 0.1))
	assert.Zero(t, RaisedCosine(0.3, 0.1))
}

func TestLostDeviceFailsOperations(t *testing.T) {
	sim, dev := newSim(t, 16)
	dev.Lose()

	err := sim.Propagate(sim.Delta()[0], sim.Delta()[1])
	require.Error(t, err)
	assert.ErrorIs(t, err, gpu.ErrContextLost)
	assert.True(t, gpu.IsFatal(err))
}
