package engine

import (
	"errors"
	"fmt"

	"GopherWater/internal/gpu"
	"GopherWater/internal/logger"
	"GopherWater/internal/water"

	"go.uber.org/zap"
)

var ErrClosed = errors.New("engine: runner closed")

// Builder creates a device and a pipeline on it. The runner owns both.
type Builder func() (gpu.Device, *water.Pipeline, error)

// Runner drives frames and rebuilds the pipeline after a device failure,
// at most max times.
type Runner struct {
	max       int
	build     Builder
	dev       gpu.Device
	pipe      *water.Pipeline
	recreated int
}

func NewRunner(max int, build Builder) (*Runner, error) {
	dev, pipe, err := build()
	if err != nil {
		return nil, err
	}
	return &Runner{max: max, build: build, dev: dev, pipe: pipe}, nil
}

func (r *Runner) Pipeline() *water.Pipeline { return r.pipe }

// Recreated counts pipeline rebuilds so far.
func (r *Runner) Recreated() int { return r.recreated }

func (r *Runner) Frame(in water.FrameInput) error {
	if r.pipe == nil {
		return ErrClosed
	}
	err := r.pipe.Frame(in)
	if err == nil || !gpu.IsFatal(err) {
		return err
	}
	if r.recreated >= r.max {
		return fmt.Errorf("engine: giving up after %d rebuilds: %w", r.recreated, err)
	}
	logger.Log.Warn("Device failure, rebuilding pipeline",
		zap.Error(err),
		zap.Int("attempt", r.recreated+1),
		zap.Int("max", r.max))
	return r.recreate()
}

func (r *Runner) recreate() error {
	settings := r.pipe.Snapshot()
	camera := *r.pipe.Camera()
	sphere := r.pipe.Sphere()
	r.Close()
	r.recreated++

	dev, pipe, err := r.build()
	if err != nil {
		return fmt.Errorf("engine: rebuild: %w", err)
	}
	r.dev, r.pipe = dev, pipe
	if err := pipe.Apply(settings); err != nil && !errors.Is(err, water.ErrNeedsRebuild) {
		logger.Log.Warn("Settings not restored after rebuild", zap.Error(err))
	}
	*pipe.Camera() = camera
	pipe.PlaceSphere(sphere.Center)
	return nil
}

func (r *Runner) Close() {
	if r.pipe != nil {
		r.pipe.Close()
		r.pipe = nil
	}
	if r.dev != nil {
		if err := r.dev.Close(); err != nil {
			logger.Log.Debug("Device close", zap.Error(err))
		}
		r.dev = nil
	}
}
