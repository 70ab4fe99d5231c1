package gpu

import (
	"errors"
	"fmt"
)

var (
	// ErrContextLost means every target held by the device is gone. It is
	// sticky: once reported, the device refuses further work.
	ErrContextLost = errors.New("gpu: device context lost")
	// ErrResource covers allocation, framebuffer and shader build failures.
	ErrResource = errors.New("gpu: resource failure")
	// ErrFeedbackLoop is returned for a pass that samples its own destination.
	ErrFeedbackLoop = errors.New("gpu: pass reads and writes the same target")
	// ErrReleased is returned when a released target is used.
	ErrReleased = errors.New("gpu: target already released")
)

// IsFatal reports whether err must tear down the whole pipeline.
func IsFatal(err error) bool {
	return errors.Is(err, ErrContextLost) || errors.Is(err, ErrResource)
}

// CheckFeedback rejects passes whose destination also appears as an input.
func CheckFeedback(name string, inputs []Input, dst Target) error {
	for _, in := range inputs {
		if in.Target == dst {
			return fmt.Errorf("%w: pass %q input %q", ErrFeedbackLoop, name, in.Name)
		}
	}
	return nil
}
