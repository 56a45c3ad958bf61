package middleware

import (
	"sync"
	"time"

	"github.com/gloamlab/gloam/internal/common/config"
)

// RateLimiter tracks request attempts per client IP over a sliding
// window. The auth middleware records the attempt before validating the
// key, so failed attempts burn the limit too.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration

	clock func() time.Time
}

// NewRateLimiter creates a rate limiter from configuration
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		attempts: make(map[string][]time.Time),
		max:      cfg.MaxAttempts,
		window:   cfg.Window,
		clock:    time.Now,
	}
}

// Exceeded prunes expired attempts for the client and reports whether
// the limit is already spent. It does not record an attempt.
func (r *RateLimiter) Exceeded(clientIP string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	kept := r.attempts[clientIP][:0]
	for _, t := range r.attempts[clientIP] {
		if now.Sub(t) < r.window {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(r.attempts, clientIP)
	} else {
		r.attempts[clientIP] = kept
	}
	return len(kept) >= r.max
}

// Record counts one attempt for the client
func (r *RateLimiter) Record(clientIP string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[clientIP] = append(r.attempts[clientIP], r.clock())
}
