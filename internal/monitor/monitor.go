package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/opsboard/internal/clock"
	"github.com/jpalmerr/opsboard/internal/probe"
	"github.com/jpalmerr/opsboard/record"
)

// Default sweep parameters.
const (
	DefaultTimeout        = 10 * time.Second
	DefaultInterval       = 5 * time.Minute
	DefaultMaxConcurrency = 10
)

// Prober checks whether a URL answers. *probe.Client implements it.
type Prober interface {
	Reachable(ctx context.Context, target string, timeout time.Duration) probe.Reachability
}

// Recorder persists completed snapshots.
type Recorder interface {
	SaveMonitoring(snapshot record.MonitorSnapshot)
}

// SnapshotHook is called after every completed sweep.
type SnapshotHook func(snapshot record.MonitorSnapshot)

// Monitor sweeps a list of targets for reachability.
//
// Monitor is safe for concurrent use. Concurrent sweeps are not merged:
// each one probes every target and records its own snapshot.
type Monitor struct {
	prober         Prober
	recorder       Recorder
	clock          clock.Clock
	logger         *slog.Logger
	timeout        time.Duration
	maxConcurrency int

	mu      sync.RWMutex
	targets []record.Target
	hooks   []SnapshotHook
}

// Option configures a [Monitor].
type Option func(*Monitor)

// WithTimeout sets the per-target timeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithMaxConcurrency bounds how many targets are probed at once.
func WithMaxConcurrency(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.maxConcurrency = n
		}
	}
}

// WithClock sets the clock used to stamp snapshots.
func WithClock(c clock.Clock) Option {
	return func(m *Monitor) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a [Monitor] over targets. recorder may be nil.
func New(prober Prober, recorder Recorder, targets []record.Target, opts ...Option) *Monitor {
	m := &Monitor{
		prober:         prober,
		recorder:       recorder,
		clock:          clock.Real{},
		logger:         slog.Default(),
		timeout:        DefaultTimeout,
		maxConcurrency: DefaultMaxConcurrency,
		targets:        append([]record.Target(nil), targets...),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Targets returns a copy of the configured targets.
func (m *Monitor) Targets() []record.Target {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]record.Target(nil), m.targets...)
}

// SetTargets replaces the configured targets. Sweeps already running keep
// the list they started with.
func (m *Monitor) SetTargets(targets []record.Target) {
	m.mu.Lock()
	m.targets = append([]record.Target(nil), targets...)
	m.mu.Unlock()
	m.logger.Info("monitor targets updated", "count", len(targets))
}

// OnSnapshot registers a hook run after every sweep, in registration order.
func (m *Monitor) OnSnapshot(hook SnapshotHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook)
}

// Sweep probes the configured targets and records the snapshot.
func (m *Monitor) Sweep(ctx context.Context) record.MonitorSnapshot {
	return m.SweepTargets(ctx, m.Targets())
}

// SweepTargets probes targets concurrently and records the snapshot.
//
// Every target gets its own timeout. Results keep the order of targets
// regardless of which probe finishes first. If ctx is cancelled the
// partial snapshot is returned but neither recorded nor passed to hooks.
func (m *Monitor) SweepTargets(ctx context.Context, targets []record.Target) record.MonitorSnapshot {
	results := make([]record.SiteStatus, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.maxConcurrency)
	for i, target := range targets {
		g.Go(func() error {
			results[i] = m.check(gctx, target)
			return nil
		})
	}
	_ = g.Wait() // checks never fail; failures are offline statuses

	snapshot := record.MonitorSnapshot{
		Timestamp: m.clock.Now(),
		Results:   results,
	}

	if err := ctx.Err(); err != nil {
		m.logger.Info("sweep aborted", "error", err)
		return snapshot
	}

	if m.recorder != nil {
		m.recorder.SaveMonitoring(snapshot)
	}

	overall := record.Summarize(snapshot)
	m.logger.Info("sweep complete",
		"online", overall.Online,
		"total", overall.Total,
		"state", overall.State,
	)

	m.mu.RLock()
	hooks := append([]SnapshotHook(nil), m.hooks...)
	m.mu.RUnlock()
	for _, hook := range hooks {
		hook(snapshot)
	}

	return snapshot
}

// check probes a single target.
func (m *Monitor) check(ctx context.Context, target record.Target) record.SiteStatus {
	res := m.prober.Reachable(ctx, target.URL, m.timeout)
	ms := res.Elapsed.Milliseconds()

	status := record.SiteStatus{
		URL:            target.URL,
		Name:           target.Name,
		Status:         record.SiteOnline,
		ResponseTimeMs: &ms,
		LastChecked:    m.clock.Now(),
	}
	if !res.Online {
		status.Status = record.SiteOffline
		if res.Err != nil {
			status.Error = res.Err.Error()
		} else {
			status.Error = "unreachable"
		}
		m.logger.Warn("site unreachable", "name", target.Name, "url", target.URL, "error", status.Error)
		return status
	}

	m.logger.Debug("site reachable", "name", target.Name, "url", target.URL, "response_ms", ms)
	return status
}
