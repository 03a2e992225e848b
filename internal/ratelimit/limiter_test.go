package ratelimit

import (
	"testing"
	"time"
)

func TestFirstActionAllowed(t *testing.T) {
	l := New()
	allowed, wait := l.Allow("actor-1", "ticket_create", 5*time.Minute)
	if !allowed {
		t.Fatal("expected first action to be allowed")
	}
	if wait != 0 {
		t.Fatalf("got wait %v, want 0", wait)
	}
}

func TestOnlyOneOfKSucceeds(t *testing.T) {
	now := time.Now()
	l := New()
	l.Now = func() time.Time { return now }

	succeeded := 0
	for i := 0; i < 10; i++ {
		allowed, _ := l.Allow("actor-1", "ticket_create", time.Minute)
		if allowed {
			succeeded++
		}
		now = now.Add(time.Second)
	}
	if succeeded != 1 {
		t.Fatalf("%d actions succeeded within the window, want exactly 1", succeeded)
	}
}

func TestRetryAfterCountsDown(t *testing.T) {
	now := time.Now()
	l := New()
	l.Now = func() time.Time { return now }

	l.Allow("actor-1", "ticket_create", 300*time.Second)

	now = now.Add(60 * time.Second)
	allowed, wait := l.Allow("actor-1", "ticket_create", 300*time.Second)
	if allowed {
		t.Fatal("expected rejection inside window")
	}
	if wait != 240*time.Second {
		t.Fatalf("got retry_after %v, want 240s", wait)
	}
}

func TestAllowedAgainAfterWindow(t *testing.T) {
	now := time.Now()
	l := New()
	l.Now = func() time.Time { return now }

	l.Allow("actor-1", "ticket_create", time.Minute)

	now = now.Add(time.Minute)
	allowed, _ := l.Allow("actor-1", "ticket_create", time.Minute)
	if !allowed {
		t.Fatal("expected action after window to be allowed")
	}
}

func TestWindowsIndependentPerActorAndAction(t *testing.T) {
	l := New()
	l.Allow("actor-1", "ticket_create", time.Minute)

	if allowed, _ := l.Allow("actor-2", "ticket_create", time.Minute); !allowed {
		t.Fatal("expected other actor to be unaffected")
	}
	if allowed, _ := l.Allow("actor-1", "panel_render", time.Minute); !allowed {
		t.Fatal("expected other action to be unaffected")
	}
}

func TestSweepPurgesStaleWindows(t *testing.T) {
	now := time.Now()
	l := New()
	l.Now = func() time.Time { return now }

	l.Allow("actor-1", "ticket_create", time.Minute)
	l.Allow("actor-2", "ticket_create", time.Hour)

	now = now.Add(2 * time.Minute)
	if removed := l.Sweep(); removed != 1 {
		t.Fatalf("swept %d windows, want 1", removed)
	}
	if l.Len() != 1 {
		t.Fatalf("got %d windows after sweep, want 1", l.Len())
	}
}

func TestClear(t *testing.T) {
	l := New()
	l.Allow("actor-1", "ticket_create", time.Minute)
	l.Clear()
	if l.Len() != 0 {
		t.Fatalf("got %d windows after clear, want 0", l.Len())
	}
}
