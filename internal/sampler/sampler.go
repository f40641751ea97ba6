package sampler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jpalmerr/opsboard/internal/clock"
	"github.com/jpalmerr/opsboard/internal/probe"
	"github.com/jpalmerr/opsboard/record"
)

// eventBuffer comfortably holds every event of a default run, so a consumer
// that only calls Wait loses nothing it would have cared about.
const eventBuffer = 128

// Prober issues the probes a run needs. *probe.Client implements it.
type Prober interface {
	Latency(ctx context.Context, endpoint string) time.Duration
	Download(ctx context.Context, endpoint string, n int64) (probe.Transfer, error)
}

// Recorder persists the outcome of a completed run.
type Recorder interface {
	SaveSpeedTest(rec record.SpeedRecord)
}

// Result is the outcome of a completed run.
type Result struct {
	Record record.SpeedRecord
	// TotalBytes is the sum of accepted sample sizes.
	TotalBytes int64
	// Samples counts accepted samples.
	Samples int
	// Rejected counts samples dropped by the plausibility filter.
	Rejected int
	// Failed counts probes that returned an error.
	Failed int
}

// Sampler runs speed tests.
type Sampler struct {
	prober   Prober
	recorder Recorder
	clock    clock.Clock
	logger   *slog.Logger
	cfg      Config
}

// New creates a [Sampler]. recorder may be nil, in which case results are
// not persisted.
func New(prober Prober, recorder Recorder, cfg Config, clk clock.Clock, logger *slog.Logger) (*Sampler, error) {
	if prober == nil {
		return nil, errors.New("sampler: prober is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Sizes = append([]int64(nil), cfg.Sizes...)
	return &Sampler{
		prober:   prober,
		recorder: recorder,
		clock:    clk,
		logger:   logger,
		cfg:      cfg,
	}, nil
}

// Config returns the sampler's configuration.
func (s *Sampler) Config() Config {
	return s.cfg
}

// Run is one in-progress speed test.
type Run struct {
	events chan Event
	done   chan struct{}
	result Result
	err    error
}

// Events returns the run's event stream. The channel is closed when the run
// ends. Sends never block: events are dropped if the buffer is full.
func (r *Run) Events() <-chan Event {
	return r.events
}

// Done is closed when the run has ended.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run ends. The error is non-nil only if ctx was
// cancelled, in which case nothing was persisted.
func (r *Run) Wait() (Result, error) {
	<-r.done
	return r.result, r.err
}

func (r *Run) emit(ev Event) {
	select {
	case r.events <- ev:
	default:
	}
}

// Start begins a speed test in a background goroutine.
//
// The run measures latency once, then samples downloads until the configured
// duration has elapsed. Cancelling ctx aborts the run without persisting.
func (s *Sampler) Start(ctx context.Context) *Run {
	if ctx == nil {
		ctx = context.Background()
	}
	run := &Run{
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(run.done)
		defer close(run.events)
		run.result, run.err = s.run(ctx, run)
	}()
	return run
}

// sample is the outcome of one download probe.
type sample struct {
	requested int64
	transfer  probe.Transfer
	err       error
}

// tally holds the running totals. It is only touched by the run goroutine.
type tally struct {
	bytes    int64
	max      float64
	accepted int
	rejected int
	failed   int
}

func (s *Sampler) run(ctx context.Context, run *Run) (Result, error) {
	run.emit(Event{Type: EventPhase, Phase: PhasePing})
	ping := s.prober.Latency(ctx, s.cfg.Endpoint)
	if err := ctx.Err(); err != nil {
		s.logger.Info("speed test aborted", "phase", PhasePing, "error", err)
		return Result{}, err
	}
	pingMs := float64(ping) / float64(time.Millisecond)

	run.emit(Event{Type: EventPhase, Phase: PhaseDownload})

	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	samples := make(chan sample, s.cfg.maxSamples())
	var wg sync.WaitGroup
	dispatch := func(elapsed time.Duration) {
		size := s.cfg.SizeFor(elapsed)
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr, err := s.prober.Download(probeCtx, s.cfg.Endpoint, size)
			samples <- sample{requested: size, transfer: tr, err: err}
		}()
	}

	start := s.clock.Now()
	ticker := s.clock.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	var t tally
	dispatch(0)

	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			wg.Wait()
			s.logger.Info("speed test aborted", "phase", PhaseDownload, "error", ctx.Err())
			return Result{}, ctx.Err()

		case sm := <-samples:
			s.fold(run, &t, sm, s.clock.Now().Sub(start))

		case now := <-ticker.C():
			elapsed := now.Sub(start)
			if elapsed < s.cfg.Duration {
				dispatch(elapsed)
				continue
			}

			ticker.Stop()
			cancel()
			wg.Wait()
		drain:
			for {
				select {
				case sm := <-samples:
					s.fold(run, &t, sm, elapsed)
				default:
					break drain
				}
			}
			return s.finish(run, t, pingMs, elapsed), nil
		}
	}
}

// fold applies one sample to the running totals.
func (s *Sampler) fold(run *Run, t *tally, sm sample, elapsed time.Duration) {
	if sm.err != nil {
		t.failed++
		if errors.Is(sm.err, context.Canceled) {
			s.logger.Debug("download sample cancelled", "requested_bytes", sm.requested)
		} else {
			s.logger.Warn("download sample failed", "requested_bytes", sm.requested, "error", sm.err)
		}
		return
	}

	mbps := sm.transfer.Mbps()
	if !s.cfg.Accept(mbps) {
		t.rejected++
		s.logger.Debug("download sample rejected",
			"mbps", mbps,
			"bytes", sm.transfer.Bytes,
			"elapsed", sm.transfer.Elapsed,
		)
		return
	}

	t.accepted++
	t.bytes += sm.transfer.Bytes
	s.logger.Debug("download sample", "mbps", mbps, "bytes", sm.transfer.Bytes, "elapsed", sm.transfer.Elapsed)

	run.emit(Event{Type: EventSpeed, Mbps: mbps})
	run.emit(Event{Type: EventProgress, Progress: s.progress(elapsed)})
	if mbps > t.max {
		t.max = mbps
		run.emit(Event{Type: EventMaxSpeed, Mbps: mbps})
	}
}

// finish computes the aggregate, persists it and emits the closing events.
func (s *Sampler) finish(run *Run, t tally, pingMs float64, elapsed time.Duration) Result {
	final := probe.Mbps(t.bytes, elapsed)

	// the peak sample can never be slower than the average
	maxSpeed := t.max
	if final > maxSpeed {
		maxSpeed = final
	}

	rec := record.SpeedRecord{
		Download:  final,
		Ping:      pingMs,
		MaxSpeed:  maxSpeed,
		Timestamp: s.clock.Now(),
	}
	if s.recorder != nil {
		s.recorder.SaveSpeedTest(rec)
	}

	run.emit(Event{Type: EventSpeed, Mbps: final, Final: true})
	run.emit(Event{Type: EventProgress, Progress: 100})
	run.emit(Event{Type: EventPhase, Phase: PhaseComplete})

	s.logger.Info("speed test complete",
		"download_mbps", final,
		"max_mbps", maxSpeed,
		"ping_ms", pingMs,
		"samples", t.accepted,
		"rejected", t.rejected,
		"failed", t.failed,
	)

	return Result{
		Record:     rec,
		TotalBytes: t.bytes,
		Samples:    t.accepted,
		Rejected:   t.rejected,
		Failed:     t.failed,
	}
}

func (s *Sampler) progress(elapsed time.Duration) float64 {
	p := float64(elapsed) / float64(s.cfg.Duration) * 100
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}
