package ratelimit

import (
	"testing"
	"time"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := New(DefaultMaxActions, DefaultWindow)
	l.now = clock.now
	return l, clock
}

func TestAllowUpToBudget(t *testing.T) {
	l, _ := newTestLimiter(t)

	for i := 0; i < DefaultMaxActions; i++ {
		if !l.Allow("alice") {
			t.Fatalf("call %d rejected, want all %d admitted", i+1, DefaultMaxActions)
		}
	}
	// The 31st call inside the window must be rejected.
	if l.Allow("alice") {
		t.Error("call 31 admitted, want rejected")
	}
}

func TestRecoversAfterWindow(t *testing.T) {
	l, clock := newTestLimiter(t)

	for i := 0; i < DefaultMaxActions; i++ {
		l.Allow("alice")
		clock.advance(time.Second)
	}
	if l.Allow("alice") {
		t.Fatal("budget exhausted but call admitted")
	}

	// 31 seconds later the first ~30 timestamps have aged out of the
	// trailing 60 s window.
	clock.advance(31 * time.Second)
	if !l.Allow("alice") {
		t.Error("call after window elapsed still rejected")
	}
}

func TestIdentitiesAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t)

	for i := 0; i < DefaultMaxActions; i++ {
		l.Allow("alice")
	}
	if l.Allow("alice") {
		t.Fatal("alice should be over budget")
	}
	if !l.Allow("bob") {
		t.Error("bob rejected although he never acted")
	}
}

func TestRejectedCallsConsumeNoBudget(t *testing.T) {
	l, clock := newTestLimiter(t)

	for i := 0; i < DefaultMaxActions; i++ {
		l.Allow("alice")
	}
	// Hammering while rejected must not push the recovery point out.
	for i := 0; i < 100; i++ {
		clock.advance(100 * time.Millisecond)
		if l.Allow("alice") {
			t.Fatal("admitted while window still full")
		}
	}
	clock.advance(DefaultWindow)
	if !l.Allow("alice") {
		t.Error("rejected after full window of inactivity")
	}
}

func TestRemaining(t *testing.T) {
	l, _ := newTestLimiter(t)

	if got := l.Remaining("alice"); got != DefaultMaxActions {
		t.Errorf("Remaining = %d, want %d", got, DefaultMaxActions)
	}
	l.Allow("alice")
	l.Allow("alice")
	if got := l.Remaining("alice"); got != DefaultMaxActions-2 {
		t.Errorf("Remaining = %d, want %d", got, DefaultMaxActions-2)
	}
}
