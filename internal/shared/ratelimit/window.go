package ratelimit

import (
	"sync"
	"time"
)

// Window caps events per key to Limit within any Size-long span. Unlike a
// token bucket it never admits more than Limit events in a single window.
type Window struct {
	Limit int
	Size  time.Duration

	mu   sync.Mutex
	now  func() time.Time
	hits map[string][]time.Time
}

// NewWindow allows limit events per size. A nil clock means time.Now.
func NewWindow(now func() time.Time, limit int, size time.Duration) *Window {
	if now == nil {
		now = time.Now
	}
	return &Window{
		Limit: limit,
		Size:  size,
		now:   now,
		hits:  make(map[string][]time.Time),
	}
}

// Allow records an event for key if the window has room. Otherwise it reports
// how long until the oldest event leaves the window.
func (w *Window) Allow(key string) (bool, time.Duration) {
	if w == nil || w.Limit <= 0 || w.Size <= 0 {
		return true, 0
	}
	now := w.now()
	w.mu.Lock()
	defer w.mu.Unlock()

	recent := w.hits[key]
	keep := 0
	for _, at := range recent {
		if now.Sub(at) < w.Size {
			recent[keep] = at
			keep++
		}
	}
	recent = recent[:keep]

	if len(recent) >= w.Limit {
		w.hits[key] = recent
		return false, recent[0].Add(w.Size).Sub(now)
	}
	w.hits[key] = append(recent, now)
	return true, 0
}
