package provider

import (
	"context"
	"sync"
	"time"
)

// RateLimiter paces calls to one upstream API. Up to burst calls pass back
// to back; after that each call is spaced interval apart. Waiters reserve
// their slot up front, so concurrent callers are served in arrival order.
type RateLimiter struct {
	mu       sync.Mutex
	burst    int
	interval time.Duration
	// next is the time the bucket would be empty again if no more calls
	// arrived.
	next  time.Time
	now   func() time.Time
	timer func(time.Duration) (<-chan time.Time, func() bool)
}

// NewRateLimiter allows burst immediate calls, refilled one per interval.
func NewRateLimiter(burst int, interval time.Duration) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		burst:    burst,
		interval: interval,
		now:      time.Now,
		timer: func(d time.Duration) (<-chan time.Time, func() bool) {
			t := time.NewTimer(d)
			return t.C, t.Stop
		},
	}
}

// Wait blocks until the caller's slot arrives or ctx is done. A cancelled
// wait gives its slot back.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	delay, slotEnd := r.reserve()
	if delay <= 0 {
		return nil
	}

	fired, stop := r.timer(delay)
	select {
	case <-fired:
		return nil
	case <-ctx.Done():
		stop()
		r.release(slotEnd)
		return ctx.Err()
	}
}

func (r *RateLimiter) reserve() (time.Duration, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	start := r.next
	if start.Before(now) {
		start = now
	}
	tolerance := time.Duration(r.burst-1) * r.interval
	delay := start.Sub(now) - tolerance

	r.next = start.Add(r.interval)
	return delay, r.next
}

func (r *RateLimiter) release(slotEnd time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Only the latest reservation can be returned without reordering others.
	if r.next.Equal(slotEnd) {
		r.next = r.next.Add(-r.interval)
	}
}
