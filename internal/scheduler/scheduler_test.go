package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerFiresImmediatelyAndOnTick(t *testing.T) {
	var runs atomic.Int32

	s := New(10 * time.Millisecond)
	s.Start(context.Background(), func(ctx context.Context, at time.Time) {
		runs.Add(1)
	})
	defer s.Stop()

	deadline := time.After(500 * time.Millisecond)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 2 runs, got %d", runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSchedulerStopHaltsJob(t *testing.T) {
	var runs atomic.Int32

	s := New(5 * time.Millisecond)
	s.Start(context.Background(), func(ctx context.Context, at time.Time) {
		runs.Add(1)
	})

	time.Sleep(20 * time.Millisecond)
	s.Stop()
	// Let a job already past its shutdown check finish.
	time.Sleep(10 * time.Millisecond)
	after := runs.Load()

	time.Sleep(30 * time.Millisecond)
	if runs.Load() != after {
		t.Errorf("job ran after Stop: %d -> %d", after, runs.Load())
	}
}

func TestSchedulerContextCancel(t *testing.T) {
	var runs atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	s := New(5 * time.Millisecond)
	s.Start(ctx, func(ctx context.Context, at time.Time) {
		runs.Add(1)
	})

	time.Sleep(20 * time.Millisecond)
	cancel()
	time.Sleep(10 * time.Millisecond)
	after := runs.Load()

	time.Sleep(30 * time.Millisecond)
	if runs.Load() != after {
		t.Errorf("job ran after context cancel: %d -> %d", after, runs.Load())
	}
}

func TestSchedulerStartStopChurn(t *testing.T) {
	// Stop mutates the stop channel while the ticker goroutine is selecting
	// on it; rapid cycles must stay safe and leave no goroutine running.
	var runs atomic.Int32

	s := New(time.Millisecond)
	for i := 0; i < 50; i++ {
		s.Start(context.Background(), func(ctx context.Context, at time.Time) {
			runs.Add(1)
		})
		s.Stop()
	}

	// Let any goroutine already past its shutdown check finish.
	time.Sleep(20 * time.Millisecond)
	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	if runs.Load() != after {
		t.Errorf("job ran after final Stop: %d -> %d", after, runs.Load())
	}
}

func TestSchedulerNilJobIsNoop(t *testing.T) {
	s := New(time.Millisecond)
	s.Start(context.Background(), nil)
	s.Stop()
}
