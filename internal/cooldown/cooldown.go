// Package cooldown enforces a minimum interval between actions per key.
package cooldown

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of a cooldown check.
type Decision struct {
	Allowed   bool
	Remaining time.Duration
}

// RetryAfterSeconds rounds the remaining wait up to whole seconds.
func (d Decision) RetryAfterSeconds() int64 {
	return RetryAfterSeconds(d.Remaining)
}

// RetryAfterSeconds rounds a wait up to whole seconds, never below zero.
func RetryAfterSeconds(remaining time.Duration) int64 {
	if remaining <= 0 {
		return 0
	}
	secs := int64(remaining / time.Second)
	if remaining%time.Second != 0 {
		secs++
	}
	return secs
}

// Limiter records an action for key when allowed. A denied attempt does not
// extend the window.
type Limiter interface {
	TryConsume(ctx context.Context, key string, now time.Time) (Decision, error)
}

// MemoryLimiter keeps timestamps in process memory.
type MemoryLimiter struct {
	window time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

// NewMemoryLimiter creates an in-process limiter.
func NewMemoryLimiter(window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{window: window, last: make(map[string]time.Time)}
}

// TryConsume implements Limiter.
func (l *MemoryLimiter) TryConsume(_ context.Context, key string, now time.Time) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.last[key]; ok {
		elapsed := now.Sub(prev)
		if elapsed < l.window {
			return Decision{Allowed: false, Remaining: l.window - elapsed}, nil
		}
	}
	l.last[key] = now
	l.prune(now)
	return Decision{Allowed: true}, nil
}

// prune drops expired entries so the map does not grow without bound.
func (l *MemoryLimiter) prune(now time.Time) {
	if len(l.last) < 1024 {
		return
	}
	for k, ts := range l.last {
		if now.Sub(ts) >= l.window {
			delete(l.last, k)
		}
	}
}
