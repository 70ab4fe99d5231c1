package gpu

import (
	"sync"

	"GopherWater/internal/logger"

	"go.uber.org/zap"
)

// PoolStats provides debugging and profiling information about live targets.
type PoolStats struct {
	Allocated   int
	Released    int
	Active      int
	ActiveBytes int64
	PeakBytes   int64
}

// Pool is the bookkeeping shared by device implementations: which targets
// are live, and how much memory they hold.
type Pool struct {
	device string
	live   map[Target]TargetSpec
	mu     sync.RWMutex
	stats  PoolStats
}

func NewPool(device string) *Pool {
	return &Pool{
		device: device,
		live:   make(map[Target]TargetSpec),
	}
}

// Track registers a freshly allocated target.
func (p *Pool) Track(t Target) {
	p.mu.Lock()
	defer p.mu.Unlock()

	spec := t.Spec()
	p.live[t] = spec
	p.stats.Allocated++
	p.stats.ActiveBytes += spec.Bytes()
	if p.stats.ActiveBytes > p.stats.PeakBytes {
		p.stats.PeakBytes = p.stats.ActiveBytes
	}

	logger.Log.Debug("Render target allocated",
		zap.String("device", p.device),
		zap.String("name", spec.Name),
		zap.Int("width", spec.Width),
		zap.Int("height", spec.Height),
		zap.Stringer("format", spec.Format))
}

// Untrack forgets a target and reports whether it was live.
func (p *Pool) Untrack(t Target) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	spec, ok := p.live[t]
	if !ok {
		logger.Log.Warn("Attempted to release unknown render target",
			zap.String("device", p.device))
		return false
	}
	delete(p.live, t)
	p.stats.Released++
	p.stats.ActiveBytes -= spec.Bytes()

	logger.Log.Debug("Render target released",
		zap.String("device", p.device),
		zap.String("name", spec.Name))
	return true
}

func (p *Pool) Has(t Target) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.live[t]
	return ok
}

// Live returns a snapshot of every tracked target.
func (p *Pool) Live() []Target {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Target, 0, len(p.live))
	for t := range p.live {
		out = append(out, t)
	}
	return out
}

func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := p.stats
	stats.Active = len(p.live)
	return stats
}

func (p *Pool) LogStats() {
	stats := p.Stats()
	logger.Log.Info("Render target pool stats",
		zap.String("device", p.device),
		zap.Int("allocated", stats.Allocated),
		zap.Int("released", stats.Released),
		zap.Int("active", stats.Active),
		zap.Float64("activeMB", float64(stats.ActiveBytes)/(1<<20)),
		zap.Float64("peakMB", float64(stats.PeakBytes)/(1<<20)))
}
