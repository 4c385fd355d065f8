package game

import (
	"sync"
	"time"
)

// PaddleUpdateInterval is the minimum gap between accepted paddle moves for
// one paddle of one session. Anything faster is dropped silently.
const PaddleUpdateInterval = 8 * time.Millisecond

type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
	now      func() time.Time
}

func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{
		interval: interval,
		last:     make(map[string]time.Time),
		now:      time.Now,
	}
}

// Allow reports whether an update for key may proceed and, if so, records
// the acceptance time.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.now()
	if last, ok := r.last[key]; ok && t.Sub(last) < r.interval {
		return false
	}
	r.last[key] = t
	return true
}
