// Package ratelimit implements a fixed-window limiter keyed by
// (actor, action). The first action inside a window is allowed; any
// repeat before the window elapses is rejected with the remaining wait.
package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	start  time.Time
	length time.Duration
}

// Limiter tracks one window per (actor, action) pair. Stale windows are
// purged lazily on access and by Sweep; state is disposable.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]window

	// Now is the clock used for window checks, replaceable in tests.
	Now func() time.Time
}

// New creates an empty limiter.
func New() *Limiter {
	return &Limiter{
		windows: make(map[string]window),
		Now:     time.Now,
	}
}

// Allow reports whether actor may perform action now. When rejected the
// second return carries how long the actor must wait.
func (l *Limiter) Allow(actorKey, actionKey string, windowLength time.Duration) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := actorKey + "|" + actionKey
	now := l.Now()

	if w, ok := l.windows[key]; ok {
		elapsed := now.Sub(w.start)
		if elapsed < w.length {
			return false, w.length - elapsed
		}
	}

	l.windows[key] = window{start: now, length: windowLength}
	return true, 0
}

// Sweep purges elapsed windows and returns how many were removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.Now()
	removed := 0
	for key, w := range l.windows {
		if now.Sub(w.start) >= w.length {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// Clear drops all tracked windows.
func (l *Limiter) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string]window)
}

// Len returns the number of tracked windows.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
