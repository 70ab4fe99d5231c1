package behaviour

import "sort"

// Constructor builds a behaviour bound to host. seed makes its noise
// reproducible.
type Constructor func(host Host, seed int64) Behaviour

var registry = make(map[string]Constructor)

func init() {
	Register("wander", func(host Host, seed int64) Behaviour { return NewSphereWander(host, seed) })
	Register("rain", func(host Host, seed int64) Behaviour { return NewRain(host, seed) })
}

func Register(name string, constructor Constructor) {
	registry[name] = constructor
}

// Available lists registered behaviour names in sorted order.
func Available() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create returns nil for unknown names.
func Create(name string, host Host, seed int64) Behaviour {
	if constructor, exists := registry[name]; exists {
		return constructor(host, seed)
	}
	return nil
}
