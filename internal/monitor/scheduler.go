package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jpalmerr/opsboard/internal/clock"
)

// SweepFunc is the work a [Scheduler] repeats, usually a bound
// [Monitor.Sweep] wrapped to drop its snapshot.
type SweepFunc func(ctx context.Context)

// Scheduler runs a sweep immediately on start and then every interval.
//
// Sweeps run one at a time on the scheduler's goroutine; a slow sweep delays
// the next tick rather than overlapping it. Manual sweeps triggered
// elsewhere are independent of the scheduler.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	sweep    SweepFunc
	interval time.Duration
	clock    clock.Clock

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewScheduler creates a [Scheduler]. A nil clock uses the system clock.
func NewScheduler(sweep SweepFunc, interval time.Duration, clk clock.Clock) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Scheduler{
		sweep:    sweep,
		interval: interval,
		clock:    clk,
	}
}

// Start begins the sweep loop in a background goroutine.
//
// Start is non-blocking and returns immediately. The scheduler will:
//  1. Sweep immediately
//  2. Sweep again on every tick of interval
//  3. Continue until [Scheduler.Stop] is called or the context is cancelled
//
// If ctx is nil, context.Background() is used as the parent context.
// Start is idempotent; subsequent calls after the first are no-ops.
// If Stop was called before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	sweepCtx := s.ctx // capture under lock to avoid race
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		ticker := s.clock.NewTicker(s.interval)
		defer ticker.Stop()

		s.run(sweepCtx)

		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C():
				s.run(sweepCtx)
			}
		}
	}()
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.sweep(ctx)
}

// Stop halts the scheduler and waits for the in-flight sweep to finish.
//
// Stop is idempotent and safe to call multiple times. Calling Stop before
// Start is a safe no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
}
