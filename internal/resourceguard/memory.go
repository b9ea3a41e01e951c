// Package resourceguard implements the two independent backpressure
// thresholds the pipeline reacts to under load: MemoryGuard samples the
// Go runtime's own memory stats, runs registered cleanup strategies at any
// tier above normal and signals each tier change, and ErrorThreshold counts recent
// failures to decide when callers should degrade gracefully instead of
// continuing to fail the same way.
package resourceguard

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"
)

// Level is a MemoryGuard escalation tier.
type Level int

const (
	LevelNormal Level = iota
	LevelWarn
	LevelCritical
	LevelEmergency
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelCritical:
		return "critical"
	case LevelEmergency:
		return "emergency"
	default:
		return "normal"
	}
}

// CleanupStrategy is a registered cache-eviction plugin. Priority is
// ascending: strategy with the lowest Priority value runs first. Run
// reports what it actually freed so the guard can decide whether to keep
// invoking lower-priority strategies.
type CleanupStrategy struct {
	Name     string
	Priority int
	Run      func(ctx context.Context) (freedBytes int64, itemsRemoved int, err error)
}

// MemoryGuardOptions configures sampling cadence and escalation
// thresholds, each expressed as a fraction of LimitBytes.
type MemoryGuardOptions struct {
	CheckInterval time.Duration
	LimitBytes    uint64 // denominator used for the warn/critical/emergency percentages
	WarnPct       float64
	CriticalPct   float64
	EmergencyPct  float64
}

// DefaultMemoryGuardOptions returns conservative defaults: a 2GiB heap
// budget with the classic 70/85/95 escalation ladder.
func DefaultMemoryGuardOptions() MemoryGuardOptions {
	return MemoryGuardOptions{
		CheckInterval: 5 * time.Second,
		LimitBytes:    2 << 30,
		WarnPct:       0.70,
		CriticalPct:   0.85,
		EmergencyPct:  0.95,
	}
}

// MemoryGuard samples heap usage on a timer and, once a threshold tier is
// crossed, runs registered CleanupStrategy plugins in priority order until
// the tier clears or every strategy has run. It never touches the
// pipeline's control flow directly — that's the job of whatever
// onPressure callback the caller wires up (IndexCoordinator pausing
// enumeration and shrinking its worker count at LevelEmergency, per
// §4.14's "consumed by IndexCoordinator" wording).
type MemoryGuard struct {
	mu         sync.Mutex
	opts       MemoryGuardOptions
	strategies []CleanupStrategy
	onPressure func(Level)
	logger     *slog.Logger

	lastLevel Level
	stopCh    chan struct{}
	stopped   bool
}

// NewMemoryGuard builds a MemoryGuard. onPressure, if non-nil, is invoked
// synchronously from the sampling loop every time the level changes —
// callers that need async behavior should hop to a goroutine themselves.
func NewMemoryGuard(opts MemoryGuardOptions, onPressure func(Level)) *MemoryGuard {
	if opts == (MemoryGuardOptions{}) {
		opts = DefaultMemoryGuardOptions()
	} else if opts.CheckInterval <= 0 {
		opts.CheckInterval = DefaultMemoryGuardOptions().CheckInterval
	}
	return &MemoryGuard{
		opts:       opts,
		onPressure: onPressure,
		logger:     slog.Default(),
		stopCh:     make(chan struct{}),
	}
}

// RegisterStrategy adds a cleanup plugin. Safe to call while the guard is
// running.
func (g *MemoryGuard) RegisterStrategy(s CleanupStrategy) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.strategies = append(g.strategies, s)
	sort.Slice(g.strategies, func(i, j int) bool { return g.strategies[i].Priority < g.strategies[j].Priority })
}

// Sample reads current heap stats and classifies them against the
// configured thresholds. Pure and side-effect-free so tests can call it
// directly without waiting on a ticker.
func (g *MemoryGuard) Sample() (heapAllocBytes uint64, usagePct float64, level Level) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	g.mu.Lock()
	limit := g.opts.LimitBytes
	warnPct, criticalPct, emergencyPct := g.opts.WarnPct, g.opts.CriticalPct, g.opts.EmergencyPct
	g.mu.Unlock()

	if limit == 0 {
		limit = DefaultMemoryGuardOptions().LimitBytes
	}

	pct := float64(m.HeapAlloc) / float64(limit)
	level = classify(pct, warnPct, criticalPct, emergencyPct)
	return m.HeapAlloc, pct, level
}

func classify(pct, warnPct, criticalPct, emergencyPct float64) Level {
	switch {
	case pct >= emergencyPct:
		return LevelEmergency
	case pct >= criticalPct:
		return LevelCritical
	case pct >= warnPct:
		return LevelWarn
	default:
		return LevelNormal
	}
}

// Start runs the sampling loop until ctx is canceled or Stop is called.
func (g *MemoryGuard) Start(ctx context.Context) {
	ticker := time.NewTicker(g.opts.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-g.stopCh:
			return
		case <-ticker.C:
			g.tick(ctx)
		}
	}
}

// Stop halts a running guard; safe to call more than once.
func (g *MemoryGuard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return
	}
	g.stopped = true
	close(g.stopCh)
}

func (g *MemoryGuard) tick(ctx context.Context) {
	heapAlloc, pct, level := g.Sample()

	g.mu.Lock()
	changed := level != g.lastLevel
	g.lastLevel = level
	g.mu.Unlock()

	if level > LevelNormal {
		g.logger.Warn("memory pressure", "level", level.String(), "heap_alloc_bytes", heapAlloc, "usage_pct", pct)
		g.RunCleanup(ctx, level)
	}

	if changed && g.onPressure != nil {
		g.onPressure(level)
	}
}

// RunCleanup invokes registered strategies in priority order. It draws no
// line between light and heavy strategies: it runs everything in order and,
// below LevelEmergency, stops once a strategy reports it freed nothing,
// since further lower-priority strategies are unlikely to help either. At
// LevelEmergency every strategy runs.
func (g *MemoryGuard) RunCleanup(ctx context.Context, level Level) (totalFreed int64, totalRemoved int) {
	g.mu.Lock()
	strategies := append([]CleanupStrategy(nil), g.strategies...)
	g.mu.Unlock()

	for _, s := range strategies {
		freed, removed, err := s.Run(ctx)
		if err != nil {
			g.logger.Warn("cleanup strategy failed", "strategy", s.Name, "error", err)
			continue
		}
		totalFreed += freed
		totalRemoved += removed
		if freed == 0 && removed == 0 && level < LevelEmergency {
			break
		}
	}
	return totalFreed, totalRemoved
}
