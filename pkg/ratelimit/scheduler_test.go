package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestSchedulerCapsInFlight(t *testing.T) {
	s := NewScheduler(2, 0)
	ctx := context.Background()

	release1, err := s.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	release2, err := s.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.InFlight() != 2 {
		t.Errorf("Expected 2 in-flight, got %d", s.InFlight())
	}

	// Third acquire blocks until a slot is released.
	acquired := make(chan struct{})
	go func() {
		release3, err := s.Acquire(ctx)
		if err != nil {
			t.Error(err)
			return
		}
		defer release3()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("Expected third acquire to block while both slots are held")
	case <-time.After(50 * time.Millisecond):
	}

	release1()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Expected third acquire to proceed after a release")
	}

	release2()
	if s.InFlight() != 0 {
		t.Errorf("Expected 0 in-flight after releases, got %d", s.InFlight())
	}
}

func TestSchedulerReleaseIsIdempotent(t *testing.T) {
	s := NewScheduler(1, 0)

	release, err := s.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	release()
	release() // Second call must not free a slot twice.

	if s.InFlight() != 0 {
		t.Errorf("Expected 0 in-flight, got %d", s.InFlight())
	}

	// The single slot is still usable exactly once at a time.
	release2, err := s.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer release2()
	if s.InFlight() != 1 {
		t.Errorf("Expected 1 in-flight, got %d", s.InFlight())
	}
}

func TestSchedulerEnforcesDispatchSpacing(t *testing.T) {
	spacing := 50 * time.Millisecond
	s := NewScheduler(3, spacing)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		release, err := s.Acquire(ctx)
		if err != nil {
			t.Fatal(err)
		}
		release()
	}
	elapsed := time.Since(start)

	// Three dispatches need at least two spacing intervals.
	if elapsed < 2*spacing {
		t.Errorf("Expected at least %v between dispatches, elapsed %v", 2*spacing, elapsed)
	}
}

func TestSchedulerAcquireCancellation(t *testing.T) {
	s := NewScheduler(1, 0)

	release, err := s.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := s.Acquire(ctx); err == nil {
		t.Fatal("Expected cancellation while waiting for a slot")
	}
	if s.InFlight() != 1 {
		t.Errorf("Expected the held slot to remain, got %d", s.InFlight())
	}
}
