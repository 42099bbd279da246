// Package ratelimit implements the per-caller sliding window that guards
// every mutating operation.
//
// The window is evaluated lazily: timestamps are pruned when the caller
// next acts, never by a background goroutine. A caller with 30 recorded
// actions inside the trailing window is rejected until enough of them age
// out.
package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultMaxActions is the mutation budget per window.
	DefaultMaxActions = 30
	// DefaultWindow is the trailing interval the budget applies to.
	DefaultWindow = 60 * time.Second
)

// Limiter tracks recent action timestamps per identity.
type Limiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	actions map[string][]time.Time

	now func() time.Time // injectable clock for tests
}

func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		window:  window,
		actions: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow reports whether the identity may perform another mutating action
// right now, and records the action if so. Rejected calls consume no
// budget — once the oldest recorded action leaves the window, the caller
// recovers.
func (l *Limiter) Allow(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.actions[identity][:0]
	for _, ts := range l.actions[identity] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.max {
		l.actions[identity] = recent
		return false
	}

	l.actions[identity] = append(recent, now)
	return true
}

// Remaining returns how much of the identity's budget is left in the
// current window. Diagnostic only; it does not record anything.
func (l *Limiter) Remaining(identity string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	n := 0
	for _, ts := range l.actions[identity] {
		if ts.After(cutoff) {
			n++
		}
	}
	if n > l.max {
		n = l.max
	}
	return l.max - n
}
