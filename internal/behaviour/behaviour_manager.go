// Package behaviour drives autonomous scene activity: a wandering sphere
// and ambient rain. Behaviours run once per frame before the simulation.
package behaviour

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Host is the part of the pipeline a behaviour may act on.
type Host interface {
	InjectDrop(center mgl32.Vec2, radius, strength float32)
	// SphereFree reports whether nothing else (pointer drag, physics)
	// currently controls the sphere.
	SphereFree() bool
	MoveSphere(center mgl32.Vec3)
}

type Behaviour interface {
	Start()
	Update(dt float32)
}

type behaviourWrapper struct {
	behaviour Behaviour
	started   bool
}

type Manager struct {
	behaviours []behaviourWrapper
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Add(b Behaviour) {
	m.behaviours = append(m.behaviours, behaviourWrapper{behaviour: b})
}

func (m *Manager) Remove(b Behaviour) {
	for i := range m.behaviours {
		if m.behaviours[i].behaviour == b {
			m.behaviours = append(m.behaviours[:i], m.behaviours[i+1:]...)
			return
		}
	}
}

// Clear removes all behaviours from the manager
func (m *Manager) Clear() {
	m.behaviours = m.behaviours[:0]
}

func (m *Manager) Len() int {
	return len(m.behaviours)
}

// UpdateAll starts new behaviours, then updates every behaviour in the
// order it was added.
func (m *Manager) UpdateAll(dt float32) {
	for i := range m.behaviours {
		if !m.behaviours[i].started {
			m.behaviours[i].behaviour.Start()
			m.behaviours[i].started = true
		}
		m.behaviours[i].behaviour.Update(dt)
	}
}
