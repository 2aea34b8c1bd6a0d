package provider

import (
	"context"
	"testing"
	"time"
)

// fakeClock drives a RateLimiter without sleeping.
type fakeClock struct {
	now    time.Time
	waited []time.Duration
}

func newFakeLimiter(burst int, interval time.Duration) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewRateLimiter(burst, interval)
	l.now = func() time.Time { return clock.now }
	l.timer = func(d time.Duration) (<-chan time.Time, func() bool) {
		clock.waited = append(clock.waited, d)
		ch := make(chan time.Time, 1)
		ch <- clock.now.Add(d)
		return ch, func() bool { return true }
	}
	return l, clock
}

func TestRateLimiterAllowsBurst(t *testing.T) {
	limiter, clock := newFakeLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(clock.waited) != 0 {
		t.Fatalf("burst calls should not wait, waited %v", clock.waited)
	}

	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clock.waited) != 1 || clock.waited[0] != time.Minute {
		t.Fatalf("fourth call should wait one interval, waited %v", clock.waited)
	}
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	limiter, clock := newFakeLimiter(1, 5*time.Second)

	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.now = clock.now.Add(5 * time.Second)
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clock.waited) != 0 {
		t.Fatalf("call after a full interval should not wait, waited %v", clock.waited)
	}

	clock.now = clock.now.Add(2 * time.Second)
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clock.waited) != 1 || clock.waited[0] != 3*time.Second {
		t.Fatalf("expected a 3s wait, got %v", clock.waited)
	}
}

func TestRateLimiterHonorsContext(t *testing.T) {
	limiter := NewRateLimiter(1, time.Second)
	ctx := context.Background()
	_ = limiter.Wait(ctx)

	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := limiter.Wait(timeoutCtx); err == nil {
		t.Fatal("expected context deadline error")
	}
	if time.Since(start) > 200*time.Millisecond {
		t.Fatalf("wait should stop after context cancellation")
	}
}

func TestRateLimiterReturnsCancelledSlot(t *testing.T) {
	limiter, clock := newFakeLimiter(1, time.Minute)
	limiter.timer = func(d time.Duration) (<-chan time.Time, func() bool) {
		clock.waited = append(clock.waited, d)
		return make(chan time.Time), func() bool { return true }
	}

	_ = limiter.Wait(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	go cancel()
	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("expected cancellation error")
	}

	// The cancelled reservation is released, so the next caller waits one
	// interval rather than two.
	clock.waited = nil
	ctx2, cancel2 := context.WithCancel(context.Background())
	go cancel2()
	_ = limiter.Wait(ctx2)
	if len(clock.waited) != 1 || clock.waited[0] != time.Minute {
		t.Fatalf("expected a single interval wait, got %v", clock.waited)
	}
}

func TestRateLimiterCancelledBeforeWait(t *testing.T) {
	limiter, _ := newFakeLimiter(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
