package resourceguard

import (
	"sync"
	"time"
)

// ErrorThreshold counts errors over a rolling window and reports when
// callers should fall back to degraded behavior: Chunker skipping its
// primary strategy, LanguageDetector accepting lower-confidence results,
// SearchCoordinator shrinking k. The window resets on its own once it
// elapses without a new error, rather than needing an explicit clear.
type ErrorThreshold struct {
	mu            sync.Mutex
	resetInterval time.Duration
	maxErrors     int
	count         int
	windowStart   time.Time
	now           func() time.Time
}

// NewErrorThreshold builds an ErrorThreshold. maxErrors <= 0 disables
// tripping (ShouldUseFallback always false).
func NewErrorThreshold(resetInterval time.Duration, maxErrors int) *ErrorThreshold {
	return &ErrorThreshold{
		resetInterval: resetInterval,
		maxErrors:     maxErrors,
		now:           time.Now,
	}
}

// RecordError registers one failure, rolling the window over if the
// previous window has already elapsed.
func (e *ErrorThreshold) RecordError() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if now.Sub(e.windowStart) > e.resetInterval {
		e.windowStart = now
		e.count = 0
	}
	e.count++
}

// ShouldUseFallback reports whether the error count in the current window
// has reached maxErrors. It also auto-clears the window (without
// resetting count to avoid masking a still-in-progress burst) once
// resetInterval has elapsed since the last recorded error.
func (e *ErrorThreshold) ShouldUseFallback() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.maxErrors <= 0 {
		return false
	}
	if e.now().Sub(e.windowStart) > e.resetInterval {
		e.count = 0
		e.windowStart = e.now()
		return false
	}
	return e.count >= e.maxErrors
}

// Count returns the number of errors recorded in the current window,
// mostly for tests and diagnostics.
func (e *ErrorThreshold) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}
