// Package throttle enforces a minimum spacing between outbound calls.
//
// A Throttle is rate-only: no token bucket, no burst. Every granted call moves
// the shared "last granted" timestamp, so callers can never exceed the
// configured steady-state rate no matter how many are waiting.
package throttle

import (
	"context"
	"time"
)

// DefaultRate is the default number of calls per second.
const DefaultRate = 5

// Throttle serializes acquirers and spaces grants by 1s/rate.
type Throttle struct {
	rate float64

	// lock guards last. A channel is used instead of sync.Mutex so that a
	// waiting acquirer can give up when its context is cancelled.
	lock chan struct{}
	last time.Time

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	onWait func(d time.Duration)
}

// Option configures Throttle.
type Option func(*Throttle)

// WithClock replaces the time source and the sleep function. Used by tests.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(t *Throttle) {
		t.now = now
		t.sleep = sleep
	}
}

// WithWaitObserver registers a callback invoked with every enforced pause.
func WithWaitObserver(fn func(d time.Duration)) Option {
	return func(t *Throttle) {
		t.onWait = fn
	}
}

// New creates a Throttle with the given default rate (calls/sec).
// A non-positive rate falls back to DefaultRate.
func New(rate float64, opts ...Option) *Throttle {
	if rate <= 0 {
		rate = DefaultRate
	}
	t := &Throttle{
		rate:  rate,
		lock:  make(chan struct{}, 1),
		now:   time.Now,
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Rate returns the default rate in calls per second.
func (t *Throttle) Rate() float64 {
	return t.rate
}

// Interval returns the minimum spacing for the given rate.
func Interval(rate float64) time.Duration {
	if rate <= 0 {
		rate = DefaultRate
	}
	return time.Duration(float64(time.Second) / rate)
}

// Acquire blocks until a call may proceed at the default rate.
func (t *Throttle) Acquire(ctx context.Context) error {
	return t.AcquireRate(ctx, t.rate)
}

// AcquireRate blocks until a call may proceed at the given rate.
// If less than 1s/rate elapsed since the last grant, the caller is suspended
// for the remainder. The last-granted timestamp is updated on every successful
// return. Returns ctx.Err() if the context ends first; no grant is recorded then.
func (t *Throttle) AcquireRate(ctx context.Context, rate float64) error {
	select {
	case t.lock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-t.lock }()

	interval := Interval(rate)
	elapsed := t.now().Sub(t.last)
	if elapsed < interval {
		wait := interval - elapsed
		if t.onWait != nil {
			t.onWait(wait)
		}
		if err := t.sleep(ctx, wait); err != nil {
			return err
		}
	}

	t.last = t.now()
	return nil
}

// Do acquires a slot and then runs fn.
func (t *Throttle) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := t.Acquire(ctx); err != nil {
		return err
	}
	return fn(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
