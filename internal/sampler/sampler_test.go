package sampler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jpalmerr/opsboard/internal/clock"
	"github.com/jpalmerr/opsboard/internal/probe"
	"github.com/jpalmerr/opsboard/record"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var epoch = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// fakeProber answers every download with the result of fn and records the
// requested sizes.
type fakeProber struct {
	ping time.Duration
	fn   func(call int, n int64) (probe.Transfer, error)

	mu    sync.Mutex
	calls int
	sizes []int64
}

func (f *fakeProber) Latency(ctx context.Context, endpoint string) time.Duration {
	return f.ping
}

func (f *fakeProber) Download(ctx context.Context, endpoint string, n int64) (probe.Transfer, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	f.sizes = append(f.sizes, n)
	f.mu.Unlock()
	return f.fn(call, n)
}

func (f *fakeProber) requested() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]int64(nil), f.sizes...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func constant(bytes int64, elapsed time.Duration) func(int, int64) (probe.Transfer, error) {
	return func(int, int64) (probe.Transfer, error) {
		return probe.Transfer{Bytes: bytes, Elapsed: elapsed}, nil
	}
}

type memRecorder struct {
	mu      sync.Mutex
	records []record.SpeedRecord
}

func (m *memRecorder) SaveSpeedTest(rec record.SpeedRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
}

func (m *memRecorder) saved() []record.SpeedRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]record.SpeedRecord(nil), m.records...)
}

// runToCompletion starts a run on a fake clock and ticks through the whole
// download phase.
func runToCompletion(t *testing.T, p Prober, rec Recorder, cfg Config) (Result, *Run) {
	t.Helper()
	clk := clock.NewFake(epoch)
	s, err := New(p, rec, cfg, clk, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	run := s.Start(context.Background())
	clk.WaitForTickers(1)
	for i := 0; i < int(cfg.Duration/cfg.Interval); i++ {
		clk.Advance(cfg.Interval)
	}

	res, err := run.Wait()
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return res, run
}

func TestConfig_SizeFor(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		elapsed time.Duration
		want    int64
	}{
		{-time.Second, 1 * MiB},
		{0, 1 * MiB},
		{1999 * time.Millisecond, 1 * MiB},
		{2 * time.Second, 5 * MiB},
		{3999 * time.Millisecond, 5 * MiB},
		{4 * time.Second, 10 * MiB},
		{6 * time.Second, 25 * MiB},
		{9 * time.Second, 25 * MiB},
		{time.Hour, 25 * MiB},
	}
	for _, tt := range tests {
		if got := cfg.SizeFor(tt.elapsed); got != tt.want {
			t.Errorf("SizeFor(%v) = %d, want %d", tt.elapsed, got, tt.want)
		}
	}
}

func TestConfig_Accept(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		mbps float64
		want bool
	}{
		{-1, false},
		{0, false},
		{0.001, true},
		{83.9, true},
		{9999.99, true},
		{10000, false},
		{12000, false},
	}
	for _, tt := range tests {
		if got := cfg.Accept(tt.mbps); got != tt.want {
			t.Errorf("Accept(%v) = %v, want %v", tt.mbps, got, tt.want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no endpoint", func(c *Config) { c.Endpoint = "" }},
		{"zero duration", func(c *Config) { c.Duration = 0 }},
		{"zero interval", func(c *Config) { c.Interval = 0 }},
		{"zero step", func(c *Config) { c.Step = 0 }},
		{"no sizes", func(c *Config) { c.Sizes = nil }},
		{"negative size", func(c *Config) { c.Sizes = []int64{MiB, -1} }},
		{"zero ceiling", func(c *Config) { c.MaxMbps = 0 }},
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error, got nil")
			}
		})
	}
}

func TestNew_RequiresProber(t *testing.T) {
	if _, err := New(nil, nil, DefaultConfig(), nil, nil); err == nil {
		t.Error("New(nil prober) expected error, got nil")
	}
}

func TestSampler_EndToEnd(t *testing.T) {
	p := &fakeProber{ping: 20 * time.Millisecond, fn: constant(10*MiB, time.Second)}
	rec := &memRecorder{}

	res, _ := runToCompletion(t, p, rec, DefaultConfig())

	wantRate := probe.Mbps(10*MiB, time.Second) // ~83.89
	if math.Abs(res.Record.Download-wantRate) > 0.01 {
		t.Errorf("Download = %v, want ~%v", res.Record.Download, wantRate)
	}
	if res.Record.MaxSpeed < res.Record.Download {
		t.Errorf("MaxSpeed = %v, want >= Download %v", res.Record.MaxSpeed, res.Record.Download)
	}
	if res.Record.Ping != 20 {
		t.Errorf("Ping = %v, want 20", res.Record.Ping)
	}
	if res.Samples != 10 {
		t.Errorf("Samples = %d, want 10", res.Samples)
	}
	if res.TotalBytes != 100*MiB {
		t.Errorf("TotalBytes = %d, want %d", res.TotalBytes, 100*MiB)
	}
	if !res.Record.Timestamp.Equal(epoch.Add(10 * time.Second)) {
		t.Errorf("Timestamp = %v, want %v", res.Record.Timestamp, epoch.Add(10*time.Second))
	}

	saved := rec.saved()
	if len(saved) != 1 {
		t.Fatalf("persisted %d records, want 1", len(saved))
	}
	if saved[0] != res.Record {
		t.Errorf("persisted %+v, want %+v", saved[0], res.Record)
	}

	want := []int64{1 * MiB, 1 * MiB, 5 * MiB, 5 * MiB, 10 * MiB, 10 * MiB, 25 * MiB, 25 * MiB, 25 * MiB, 25 * MiB}
	got := p.requested()
	if len(got) != len(want) {
		t.Fatalf("requested %d sizes, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("requested[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestSampler_AllSamplesRejected(t *testing.T) {
	// 1.25e9 bytes in one second is exactly 10,000 Mbps
	p := &fakeProber{fn: constant(1_250_000_000, time.Second)}
	rec := &memRecorder{}

	res, _ := runToCompletion(t, p, rec, DefaultConfig())

	if res.TotalBytes != 0 {
		t.Errorf("TotalBytes = %d, want 0", res.TotalBytes)
	}
	if res.Record.Download != 0 {
		t.Errorf("Download = %v, want 0", res.Record.Download)
	}
	if res.Record.MaxSpeed != 0 {
		t.Errorf("MaxSpeed = %v, want 0", res.Record.MaxSpeed)
	}
	if res.Rejected != 10 || res.Samples != 0 {
		t.Errorf("Rejected, Samples = %d, %d, want 10, 0", res.Rejected, res.Samples)
	}
	if len(rec.saved()) != 1 {
		t.Errorf("persisted %d records, want 1", len(rec.saved()))
	}
}

func TestSampler_FailedSamplesAreSkipped(t *testing.T) {
	p := &fakeProber{fn: func(call int, n int64) (probe.Transfer, error) {
		if call%2 == 1 {
			return probe.Transfer{}, errors.New("connection reset")
		}
		return probe.Transfer{Bytes: 10 * MiB, Elapsed: time.Second}, nil
	}}

	res, _ := runToCompletion(t, p, nil, DefaultConfig())

	if res.Failed != 5 || res.Samples != 5 {
		t.Errorf("Failed, Samples = %d, %d, want 5, 5", res.Failed, res.Samples)
	}
	want := probe.Mbps(50*MiB, 10*time.Second)
	if math.Abs(res.Record.Download-want) > 1e-9 {
		t.Errorf("Download = %v, want %v", res.Record.Download, want)
	}
	if res.Record.MaxSpeed < res.Record.Download {
		t.Errorf("MaxSpeed = %v, want >= Download %v", res.Record.MaxSpeed, res.Record.Download)
	}
}

func TestSampler_MaxSpeedTracksPeak(t *testing.T) {
	p := &fakeProber{fn: func(call int, n int64) (probe.Transfer, error) {
		if call == 3 {
			return probe.Transfer{Bytes: 100 * MiB, Elapsed: time.Second}, nil
		}
		return probe.Transfer{Bytes: MiB, Elapsed: time.Second}, nil
	}}

	res, _ := runToCompletion(t, p, nil, DefaultConfig())

	want := probe.Mbps(100*MiB, time.Second)
	if math.Abs(res.Record.MaxSpeed-want) > 1e-9 {
		t.Errorf("MaxSpeed = %v, want %v", res.Record.MaxSpeed, want)
	}
}

func TestSampler_Events(t *testing.T) {
	p := &fakeProber{fn: constant(10*MiB, time.Second)}
	_, run := runToCompletion(t, p, nil, DefaultConfig())

	var events []Event
	for ev := range run.Events() {
		events = append(events, ev)
	}
	if len(events) < 4 {
		t.Fatalf("got %d events, want at least 4", len(events))
	}

	if events[0].Type != EventPhase || events[0].Phase != PhasePing {
		t.Errorf("events[0] = %+v, want phase %s", events[0], PhasePing)
	}
	if events[1].Type != EventPhase || events[1].Phase != PhaseDownload {
		t.Errorf("events[1] = %+v, want phase %s", events[1], PhaseDownload)
	}
	last := events[len(events)-1]
	if last.Type != EventPhase || last.Phase != PhaseComplete {
		t.Errorf("last event = %+v, want phase %s", last, PhaseComplete)
	}

	var sawFinal, sawFull bool
	lastMax := 0.0
	for _, ev := range events {
		switch ev.Type {
		case EventSpeed:
			if ev.Final {
				sawFinal = true
			}
		case EventProgress:
			if ev.Progress < 0 || ev.Progress > 100 {
				t.Errorf("progress %v out of range", ev.Progress)
			}
			if ev.Progress == 100 {
				sawFull = true
			}
		case EventMaxSpeed:
			if ev.Mbps <= lastMax {
				t.Errorf("max speed event %v not above previous %v", ev.Mbps, lastMax)
			}
			lastMax = ev.Mbps
		}
	}
	if !sawFinal {
		t.Error("no final speed event")
	}
	if !sawFull {
		t.Error("no 100% progress event")
	}
}

func TestSampler_CancelDoesNotPersist(t *testing.T) {
	p := &fakeProber{fn: constant(10*MiB, time.Second)}
	rec := &memRecorder{}
	clk := clock.NewFake(epoch)

	s, err := New(p, rec, DefaultConfig(), clk, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := s.Start(ctx)
	clk.WaitForTickers(1)
	clk.Advance(time.Second)
	cancel()

	_, err = run.Wait()
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
	if n := len(rec.saved()); n != 0 {
		t.Errorf("persisted %d records after cancel, want 0", n)
	}
}

func TestSampler_PingFailureIsZero(t *testing.T) {
	p := &fakeProber{ping: 0, fn: constant(10*MiB, time.Second)}
	res, _ := runToCompletion(t, p, nil, DefaultConfig())

	if res.Record.Ping != 0 {
		t.Errorf("Ping = %v, want 0", res.Record.Ping)
	}
	if res.Record.Download == 0 {
		t.Error("Download = 0, want the download phase to run after a failed ping")
	}
}

func TestDispatch(t *testing.T) {
	events := make(chan Event, 6)
	events <- Event{Type: EventPhase, Phase: PhaseDownload}
	events <- Event{Type: EventSpeed, Mbps: 50}
	events <- Event{Type: EventProgress, Progress: 10}
	events <- Event{Type: EventMaxSpeed, Mbps: 50}
	events <- Event{Type: EventSpeed, Mbps: 40, Final: true}
	events <- Event{Type: EventPhase, Phase: PhaseComplete}
	close(events)

	var speeds, maxes, progress []float64
	var phases []Phase
	Dispatch(events, Callbacks{
		OnSpeedUpdate:    func(v float64) { speeds = append(speeds, v) },
		OnMaxSpeedUpdate: func(v float64) { maxes = append(maxes, v) },
		OnProgressUpdate: func(v float64) { progress = append(progress, v) },
		OnPhaseChange:    func(p Phase) { phases = append(phases, p) },
	})

	if len(speeds) != 2 || speeds[1] != 40 {
		t.Errorf("speeds = %v, want [50 40]", speeds)
	}
	if len(maxes) != 1 || maxes[0] != 50 {
		t.Errorf("maxes = %v, want [50]", maxes)
	}
	if len(progress) != 1 || progress[0] != 10 {
		t.Errorf("progress = %v, want [10]", progress)
	}
	if len(phases) != 2 || phases[1] != PhaseComplete {
		t.Errorf("phases = %v, want [%s %s]", phases, PhaseDownload, PhaseComplete)
	}
}

func TestDispatch_NilCallbacksAreSkipped(t *testing.T) {
	events := make(chan Event, 2)
	events <- Event{Type: EventSpeed, Mbps: 1}
	events <- Event{Type: EventMaxSpeed, Mbps: 1}
	close(events)

	// must not panic
	Dispatch(events, Callbacks{})
}
