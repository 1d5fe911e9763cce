package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"paperfeed/internal/logger"
)

// Scheduler runs a job on a fixed interval, firing once immediately on
// start. It drives the weekly email dispatch.
type Scheduler struct {
	interval time.Duration
	mu       sync.Mutex
	stop     chan struct{}
	log      *slog.Logger
}

// New builds a scheduler with the given interval.
func New(interval time.Duration) *Scheduler {
	return &Scheduler{
		interval: interval,
		log:      logger.Get(),
	}
}

// Start begins running job on the configured interval. It returns
// immediately; the job runs on a background goroutine until the context
// is cancelled or Stop is called. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context, job func(context.Context, time.Time)) {
	if job == nil {
		return
	}

	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return
	}
	// Captured locally so the goroutine never touches s.stop, which Stop
	// mutates under the lock.
	stop := make(chan struct{})
	s.stop = stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}
		job(ctx, time.Now())
		for {
			select {
			case t := <-ticker.C:
				// A tick can be ready at the same instant as shutdown;
				// never run the job once either has happened.
				select {
				case <-stop:
					return
				default:
				}
				if ctx.Err() != nil {
					return
				}
				job(ctx, t)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	s.log.Info("scheduler started", "interval", s.interval.String())
}

// Stop halts the ticker goroutine.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
	s.log.Info("scheduler stopped")
}
