package config

import (
	"fmt"
	"sort"
	"strings"
)

// Quality is a bundle of resolution settings.
type Quality struct {
	Grid          int `json:"grid"`
	CausticsSize  int `json:"caustics_size"`
	EnvSize       int `json:"environment_size"`
	StepsPerFrame int `json:"steps_per_frame"`
}

// PerformanceQuality suits integrated GPUs and the CPU device.
func PerformanceQuality() Quality {
	return Quality{Grid: 128, CausticsSize: 512, EnvSize: 64, StepsPerFrame: 1}
}

func DefaultQuality() Quality {
	return Quality{Grid: 256, CausticsSize: 1024, EnvSize: 128, StepsPerFrame: 2}
}

// HighQuality returns settings optimized for maximum visual quality
func HighQuality() Quality {
	return Quality{Grid: 512, CausticsSize: 2048, EnvSize: 256, StepsPerFrame: 2}
}

var qualities = map[string]func() Quality{
	"low":    PerformanceQuality,
	"medium": DefaultQuality,
	"high":   HighQuality,
}

// QualityNames lists the preset names accepted by ApplyQuality.
func QualityNames() []string {
	names := make([]string, 0, len(qualities))
	for n := range qualities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ApplyQuality overwrites the resolution settings with a named preset.
func (c *Config) ApplyQuality(name string) error {
	preset, ok := qualities[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("%w: quality %q, want one of %s", ErrInvalid, name, strings.Join(QualityNames(), ", "))
	}
	q := preset()
	c.Grid, c.CausticsSize, c.EnvSize, c.StepsPerFrame = q.Grid, q.CausticsSize, q.EnvSize, q.StepsPerFrame
	return nil
}
