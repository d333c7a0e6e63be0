package presence

import (
	"sync"
	"time"
)

// Limiter is a fixed-window rate limiter keyed by string (here: client
// address). The window does not slide: the counter resets when a full window
// has elapsed since the first request in it. Simpler than a token bucket and
// plenty for check-in traffic that arrives every few minutes per host.
//
// Thread Safety: all methods are safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*window

	nowFunc func() time.Time // test hook
}

type window struct {
	start time.Time
	count int
}

// NewLimiter allows limit events per key per window.
func NewLimiter(limit int, windowLen time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  windowLen,
		buckets: make(map[string]*window),
		nowFunc: time.Now,
	}
}

// Allow records one event for key and reports whether it fits the budget.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	b, ok := l.buckets[key]
	if !ok || now.Sub(b.start) >= l.window {
		l.buckets[key] = &window{start: now, count: 1}
		return true
	}

	b.count++
	return b.count <= l.limit
}

// Prune drops windows that elapsed before now, bounding memory on churny
// address pools.
func (l *Limiter) Prune(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.Sub(b.start) >= l.window {
			delete(l.buckets, key)
		}
	}
}
