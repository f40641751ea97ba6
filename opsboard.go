package opsboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/opsboard/dashboard"
	"github.com/jpalmerr/opsboard/internal/clock"
	"github.com/jpalmerr/opsboard/internal/history"
	"github.com/jpalmerr/opsboard/internal/metrics"
	"github.com/jpalmerr/opsboard/internal/monitor"
	"github.com/jpalmerr/opsboard/internal/probe"
	"github.com/jpalmerr/opsboard/internal/sampler"
	"github.com/jpalmerr/opsboard/internal/server"
)

const (
	defaultMonitorInterval = monitor.DefaultInterval
	defaultMonitorTimeout  = monitor.DefaultTimeout
	defaultMaxConcurrency  = monitor.DefaultMaxConcurrency
	defaultPort            = 8080
	defaultTitle           = "IT Operations"
)

// Board is the main orchestrator for speed tests, site monitoring, backup
// bookkeeping and dashboard serving.
//
// Board owns the history store and every engine that writes to it. It is
// created using [New] with functional options. Speed tests, sweeps and
// backup records can be driven directly through its methods; [Board.Start]
// additionally runs the periodic monitor and serves the dashboard.
//
// The typical lifecycle is:
//
//	b, err := opsboard.New(opsboard.WithTargets(opsboard.DefaultTargets()...))
//	if err != nil {
//	    slog.Error("failed to create opsboard", "error", err)
//	    os.Exit(1)
//	}
//	defer b.Close()
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	b.Start(ctx) // blocks until context cancelled
type Board struct {
	title           string
	port            int
	monitorInterval time.Duration
	logger          *slog.Logger
	clock           clock.Clock

	store   *history.Store
	records *history.Records
	probe   *probe.Client
	sampler *sampler.Sampler
	monitor *monitor.Monitor
	metrics *metrics.Collector

	speedCallbacks    []func(SpeedRecord)
	snapshotCallbacks []func(MonitorSnapshot)
}

// New creates a new [Board] instance with the given options.
//
// At least one target must be configured via [WithTarget] or [WithTargets].
// Other options have sensible defaults:
//   - Storage: in-memory
//   - Speed test: [DefaultSpeedTestConfig]
//   - Monitor interval: 5 minutes, timeout 10 seconds, concurrency 10
//   - Port: 8080
//
// Returns an error if no targets are configured, if target names repeat or
// if any option is invalid.
func New(opts ...Option) (*Board, error) {
	cfg := &boardConfig{
		speedTest:       DefaultSpeedTestConfig(),
		monitorInterval: defaultMonitorInterval,
		monitorTimeout:  defaultMonitorTimeout,
		port:            defaultPort,
		maxConcurrency:  defaultMaxConcurrency,
		title:           defaultTitle,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if err := validateTargets(cfg.targets); err != nil {
		return nil, err
	}

	if cfg.port < 1 || cfg.port > 65535 {
		return nil, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.port)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := cfg.clock
	if clk == nil {
		clk = clock.Real{}
	}
	port := cfg.storage
	if port == nil {
		port = NewMemoryStorage()
	}

	b := &Board{
		title:             cfg.title,
		port:              cfg.port,
		monitorInterval:   cfg.monitorInterval,
		logger:            logger,
		clock:             clk,
		store:             history.NewStore(port, logger),
		probe:             probe.NewClient(logger),
		metrics:           metrics.New(),
		speedCallbacks:    cfg.speedCallbacks,
		snapshotCallbacks: cfg.snapshotCallbacks,
	}
	b.records = history.NewRecords(b.store)

	s, err := sampler.New(b.probe, speedRecorder{b}, cfg.speedTest, clk, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid speed test config: %w", err)
	}
	b.sampler = s

	b.monitor = monitor.New(b.probe, b.records, cfg.targets,
		monitor.WithTimeout(cfg.monitorTimeout),
		monitor.WithMaxConcurrency(cfg.maxConcurrency),
		monitor.WithClock(clk),
		monitor.WithLogger(logger),
	)
	b.monitor.OnSnapshot(b.metrics.ObserveSnapshot)
	b.monitor.OnSnapshot(b.notifySnapshot)

	b.primeMetrics()
	return b, nil
}

// validateTargets requires a non-empty list with unique names.
func validateTargets(targets []Target) error {
	if len(targets) == 0 {
		return errors.New("at least one target is required")
	}
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if t.Name == "" || t.URL == "" {
			return fmt.Errorf("target %q must have a name and URL", t.Name)
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate target name: %q", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// primeMetrics loads persisted history into the collectors so /metrics is
// meaningful before the first run of anything.
func (b *Board) primeMetrics() {
	if rec, ok := b.records.LastSpeedTest(); ok {
		b.metrics.ObserveSpeedTest(rec)
	}
	if snap, ok := b.records.LatestMonitoring(); ok {
		b.metrics.ObserveSnapshot(snap)
	}
	b.metrics.ObserveBackups(b.records.Backups())
}

// Start begins periodic monitoring and serves the dashboard.
//
// Start is a blocking call that runs until the provided context is cancelled.
// During execution:
//
//   - All targets are swept immediately, then at the configured interval
//   - The HTTP server starts on the configured port
//   - The dashboard is available at http://localhost:<port>
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server fails to start.
func (b *Board) Start(ctx context.Context) error {
	b.logger.Info("opsboard starting", "target_count", len(b.monitor.Targets()))
	b.logger.Info("monitoring configured", "interval", b.monitorInterval.String())
	b.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", b.port))

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	scheduler := monitor.NewScheduler(func(ctx context.Context) {
		b.monitor.Sweep(ctx)
	}, b.monitorInterval, b.clock)
	scheduler.Start(ctx)

	httpServer := server.NewServer(backend{b}, b.port, dashboard.Assets, b.title, b.metrics.Handler(), b.logger)
	if err := httpServer.Start(ctx); err != nil {
		scheduler.Stop()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	scheduler.Stop()
	b.logger.Info("opsboard stopped")
	return nil
}

// Handler returns the dashboard and API router without binding a port.
// It is useful for mounting the board inside another server.
func (b *Board) Handler() http.Handler {
	return server.NewServer(backend{b}, b.port, dashboard.Assets, b.title, b.metrics.Handler(), b.logger).Handler()
}

// Metrics returns the Prometheus exposition handler for this board.
func (b *Board) Metrics() http.Handler {
	return b.metrics.Handler()
}

// Port returns the configured HTTP port for the dashboard server.
func (b *Board) Port() int {
	return b.port
}

// Title returns the dashboard title.
func (b *Board) Title() string {
	return b.title
}

// MonitorInterval returns the configured interval between sweeps.
func (b *Board) MonitorInterval() time.Duration {
	return b.monitorInterval
}

// Close releases idle network connections. It does not close the storage
// passed to [WithStorage]; that remains the caller's.
func (b *Board) Close() {
	b.probe.Close()
}

// invokeCallbackSafe calls a callback with panic recovery.
// Panics are logged with a correlation id but do not propagate.
func invokeCallbackSafe[T any](kind string, cb func(T), v T, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(kind+" callback panicked",
				"panic", r,
				"correlation_id", uuid.NewString(),
				"stack", string(debug.Stack()),
			)
		}
	}()
	cb(v)
}
