package tracker

import (
	"sync"
	"time"
)

// FrameLimiter enforces a minimum interval between accepted frames.
type FrameLimiter struct {
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	last     time.Time
	accepted bool
}

// NewFrameLimiter creates a limiter. A non-positive interval accepts every frame.
func NewFrameLimiter(interval time.Duration, now func() time.Time) *FrameLimiter {
	if now == nil {
		now = time.Now
	}
	return &FrameLimiter{interval: interval, now: now}
}

// Allow reports whether a frame arriving now may be processed.
func (l *FrameLimiter) Allow() bool {
	if l.interval <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.now()
	if l.accepted && t.Sub(l.last) < l.interval {
		return false
	}
	l.last = t
	l.accepted = true
	return true
}
