package gpu

import "fmt"

// DoubleBuffer is a ping-pong pair. Current is the only readable image
// between passes; Scratch is the next write destination.
type DoubleBuffer struct {
	targets [2]Target
	current int
}

func NewDoubleBuffer(dev Device, spec TargetSpec) (*DoubleBuffer, error) {
	b := &DoubleBuffer{}
	for i := range b.targets {
		s := spec
		s.Name = fmt.Sprintf("%s[%d]", spec.Name, i)
		t, err := dev.NewTarget(s)
		if err != nil {
			b.Release(dev)
			return nil, err
		}
		b.targets[i] = t
	}
	return b, nil
}

func (b *DoubleBuffer) Current() Target { return b.targets[b.current] }

func (b *DoubleBuffer) Scratch() Target { return b.targets[1-b.current] }

// Phase is 0 or 1 and flips on every successful Step.
func (b *DoubleBuffer) Phase() int { return b.current }

// Step runs fn with the current image as read and the scratch image as
// write, then swaps. On error nothing is swapped.
func (b *DoubleBuffer) Step(fn func(read, write Target) error) (Target, error) {
	if err := fn(b.Current(), b.Scratch()); err != nil {
		return b.Current(), err
	}
	b.current = 1 - b.current
	return b.Current(), nil
}

// Release frees both images. The buffer is unusable afterwards.
func (b *DoubleBuffer) Release(dev Device) {
	for i, t := range b.targets {
		if t != nil {
			dev.Release(t)
			b.targets[i] = nil
		}
	}
}
