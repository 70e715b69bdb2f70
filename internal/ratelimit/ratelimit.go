// Package ratelimit enforces a per-address request quota over a
// coarse fixed window. All counters are cleared wholesale when the
// window elapses, trading burst tolerance right after a reset for
// O(1) bookkeeping per request.
package ratelimit

import (
	"sync"
	"time"
)

type Limiter struct {
	mu          sync.Mutex
	ceiling     int
	window      time.Duration
	now         func() time.Time
	counts      map[string]int
	windowStart time.Time
}

func New(ceiling int, window time.Duration) *Limiter {
	return NewWithClock(ceiling, window, time.Now)
}

// NewWithClock builds a limiter on an injectable clock for
// deterministic tests.
func NewWithClock(ceiling int, window time.Duration, now func() time.Time) *Limiter {
	return &Limiter{
		ceiling:     ceiling,
		window:      window,
		now:         now,
		counts:      make(map[string]int),
		windowStart: now(),
	}
}

// Allow records one request from addr and reports whether it is
// within the ceiling for the current window.
func (l *Limiter) Allow(addr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.windowStart) >= l.window {
		l.counts = make(map[string]int)
		l.windowStart = now
	}

	l.counts[addr]++
	return l.counts[addr] <= l.ceiling
}
