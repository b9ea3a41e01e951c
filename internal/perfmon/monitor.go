// Package perfmon implements PerformanceMonitor: a uniform
// recordOperation(name, duration_ms) surface with a bounded rolling window
// per operation name and threshold alerting. It is pure reporting — nothing
// in this package ever returns an error that could influence a caller's
// control flow, matching the side-effect-only contract the rest of the
// pipeline expects from it.
package perfmon

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

const defaultWindowSize = 1000

// AlertHandler is notified when a single operation's duration crosses the
// configured threshold. Handlers run synchronously on the recording
// goroutine's call to Record, so they must not block or fail; Monitor never
// surfaces a handler's outcome back to the caller.
type AlertHandler func(alert Alert)

// Alert describes a single threshold breach.
type Alert struct {
	Operation  string
	DurationMs float64
	Threshold  float64
	At         time.Time
}

// Stats is the aggregate view over an operation's rolling window.
type Stats struct {
	Operation string
	Count     int
	AvgMs     float64
	MinMs     float64
	MaxMs     float64
}

type window struct {
	mu      sync.Mutex
	samples []float64 // ring buffer, oldest overwritten once full
	next    int
	full    bool
}

func newWindow(size int) *window {
	return &window{samples: make([]float64, size)}
}

func (w *window) add(v float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples[w.next] = v
	w.next = (w.next + 1) % len(w.samples)
	if w.next == 0 {
		w.full = true
	}
}

func (w *window) snapshot() []float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.full {
		out := make([]float64, w.next)
		copy(out, w.samples[:w.next])
		return out
	}
	out := make([]float64, len(w.samples))
	copy(out, w.samples)
	return out
}

// Monitor is the PerformanceMonitor implementation. Safe for concurrent use
// from every component that calls RecordOperation.
type Monitor struct {
	mu          sync.RWMutex
	windowSize  int
	threshold   float64
	windows    map[string]*window
	logger     *slog.Logger
	onAlert    AlertHandler
}

// Options configures a Monitor.
type Options struct {
	// WindowSize is the number of most-recent samples retained per
	// operation name. Defaults to 1000 when <= 0.
	WindowSize int
	// QueryExecutionTimeThresholdMs triggers an Alert for any single
	// recorded duration at or above it. Zero disables alerting.
	QueryExecutionTimeThresholdMs float64
	// OnAlert is invoked synchronously whenever a recorded duration
	// breaches the threshold. May be nil.
	OnAlert AlertHandler
	Logger  *slog.Logger
}

// New constructs a Monitor.
func New(opts Options) *Monitor {
	size := opts.WindowSize
	if size <= 0 {
		size = defaultWindowSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		windowSize: size,
		threshold:  opts.QueryExecutionTimeThresholdMs,
		windows:    make(map[string]*window),
		logger:     logger,
		onAlert:    opts.OnAlert,
	}
}

// RecordOperation appends durationMs to name's rolling window and fires the
// alert handler if durationMs crosses the configured threshold. It never
// returns an error: a monitoring call must not be able to fail the
// operation it is measuring.
func (m *Monitor) RecordOperation(name string, durationMs float64) {
	w := m.windowFor(name)
	w.add(durationMs)

	if m.threshold > 0 && durationMs >= m.threshold {
		m.logger.Warn("operation exceeded performance threshold",
			"operation", name, "duration_ms", durationMs, "threshold_ms", m.threshold)
		if m.onAlert != nil {
			m.onAlert(Alert{Operation: name, DurationMs: durationMs, Threshold: m.threshold, At: time.Now()})
		}
	}
}

// RecordQueryExecution is RecordOperation's conceptual shorthand for search
// query latency, the one operation name spec callers reach for most often.
func (m *Monitor) RecordQueryExecution(durationMs float64) {
	m.RecordOperation("query_execution", durationMs)
}

// Track returns a func to be deferred at the start of an operation; calling
// it records the elapsed time since Track was called.
func (m *Monitor) Track(name string) func() {
	start := time.Now()
	return func() {
		m.RecordOperation(name, float64(time.Since(start).Microseconds())/1000.0)
	}
}

func (m *Monitor) windowFor(name string) *window {
	m.mu.RLock()
	w, ok := m.windows[name]
	m.mu.RUnlock()
	if ok {
		return w
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.windows[name]; ok {
		return w
	}
	w = newWindow(m.windowSize)
	m.windows[name] = w
	return w
}

// Stats reports the current average/min/max for name. Count is 0 if name
// has never been recorded.
func (m *Monitor) Stats(name string) Stats {
	m.mu.RLock()
	w, ok := m.windows[name]
	m.mu.RUnlock()
	if !ok {
		return Stats{Operation: name}
	}
	return summarize(name, w.snapshot())
}

// AllStats reports Stats for every operation name recorded so far, sorted
// by name for deterministic output.
func (m *Monitor) AllStats() []Stats {
	m.mu.RLock()
	names := make([]string, 0, len(m.windows))
	snapshots := make(map[string][]float64, len(m.windows))
	for name, w := range m.windows {
		names = append(names, name)
		snapshots[name] = w.snapshot()
	}
	m.mu.RUnlock()

	sort.Strings(names)
	out := make([]Stats, 0, len(names))
	for _, name := range names {
		out = append(out, summarize(name, snapshots[name]))
	}
	return out
}

func summarize(name string, samples []float64) Stats {
	if len(samples) == 0 {
		return Stats{Operation: name}
	}
	min, max, sum := samples[0], samples[0], 0.0
	for _, v := range samples {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	return Stats{
		Operation: name,
		Count:     len(samples),
		AvgMs:     sum / float64(len(samples)),
		MinMs:     min,
		MaxMs:     max,
	}
}
