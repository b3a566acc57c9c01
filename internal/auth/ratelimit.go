// ABOUTME: Sliding-window login rate limiting keyed by source address
// ABOUTME: Process-local in-memory state behind an interface for later externalization

package auth

import (
	"sync"
	"time"
)

// Rate limit defaults: 5 attempts per 60 seconds.
const (
	DefaultRateLimitAttempts = 5
	DefaultRateLimitWindow   = 60 * time.Second
)

// RateLimiter tracks login attempts per source key within a sliding
// window. Implementations decide where the state lives; the in-memory
// implementation below is strictly single-process. Call sites only see
// this interface, so a shared external counter can replace it without
// touching them.
type RateLimiter interface {
	// RecordAttempt records a login attempt for the key now.
	RecordAttempt(key string)

	// IsLimited reports whether the key has reached the attempt
	// threshold within the window.
	IsLimited(key string) bool
}

// SlidingWindowLimiter is an in-memory RateLimiter. Entries older than
// the window are pruned lazily on each check. The map is guarded by a
// single mutex; this state does not span processes or machines.
type SlidingWindowLimiter struct {
	mu        sync.Mutex
	attempts  map[string][]time.Time
	threshold int
	window    time.Duration
	now       func() time.Time
}

var _ RateLimiter = (*SlidingWindowLimiter)(nil)

// NewSlidingWindowLimiter creates a limiter with the given threshold
// and window. Non-positive values fall back to the defaults.
func NewSlidingWindowLimiter(threshold int, window time.Duration) *SlidingWindowLimiter {
	if threshold <= 0 {
		threshold = DefaultRateLimitAttempts
	}
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	return &SlidingWindowLimiter{
		attempts:  make(map[string][]time.Time),
		threshold: threshold,
		window:    window,
		now:       time.Now,
	}
}

// SetClock overrides the wall clock. Used by tests to advance the window.
func (l *SlidingWindowLimiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// RecordAttempt records a login attempt for the key.
func (l *SlidingWindowLimiter) RecordAttempt(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts[key] = append(l.attempts[key], l.now())
}

// IsLimited prunes entries outside the window for the key, then
// reports whether the remaining count has reached the threshold.
func (l *SlidingWindowLimiter) IsLimited(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	kept := l.attempts[key][:0]
	for _, t := range l.attempts[key] {
		if now.Sub(t) < l.window {
			kept = append(kept, t)
		}
	}

	if len(kept) == 0 {
		delete(l.attempts, key)
		return false
	}

	l.attempts[key] = kept
	return len(kept) >= l.threshold
}
