package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Scheduler is the single dispatch point for remote API calls. It caps the
// number of concurrently in-flight calls and enforces a minimum spacing
// between dispatches, throttling burst rate without serializing unrelated
// calls.
type Scheduler struct {
	slots   chan struct{}
	spacing time.Duration

	mu           sync.Mutex
	nextDispatch time.Time
}

// NewScheduler creates a scheduler permitting maxInFlight simultaneous calls
// with at least spacing between consecutive dispatches.
func NewScheduler(maxInFlight int, spacing time.Duration) *Scheduler {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	return &Scheduler{
		slots:   make(chan struct{}, maxInFlight),
		spacing: spacing,
	}
}

// Acquire blocks until a call slot is available and the dispatch spacing has
// elapsed, then returns a release function that must be called when the
// remote call completes. Acquire returns an error only if ctx is cancelled
// while waiting.
func (s *Scheduler) Acquire(ctx context.Context) (func(), error) {
	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	wait := s.reserveDispatch()
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			<-s.slots
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	release := func() {
		once.Do(func() { <-s.slots })
	}
	return release, nil
}

// reserveDispatch claims the next dispatch time and returns how long the
// caller must wait before proceeding.
func (s *Scheduler) reserveDispatch() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	wait := s.nextDispatch.Sub(now)
	if wait < 0 {
		wait = 0
	}
	s.nextDispatch = now.Add(wait + s.spacing)
	return wait
}

// InFlight returns the number of currently held call slots.
func (s *Scheduler) InFlight() int {
	return len(s.slots)
}
