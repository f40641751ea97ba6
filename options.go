package opsboard

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jpalmerr/opsboard/internal/clock"
)

// boardConfig holds mutable state during Board construction.
type boardConfig struct {
	title             string
	targets           []Target
	storage           Storage
	speedTest         SpeedTestConfig
	monitorInterval   time.Duration
	monitorTimeout    time.Duration
	port              int
	maxConcurrency    int
	logger            *slog.Logger
	clock             clock.Clock
	speedCallbacks    []func(SpeedRecord)
	snapshotCallbacks []func(MonitorSnapshot)
}

// Option is a function that configures a [Board] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*boardConfig) error

// WithTarget adds a single site to the monitored list.
//
// Can be called multiple times to add multiple targets. At least one
// target must be configured for [New] to succeed.
//
// Example:
//
//	t, _ := opsboard.NewTarget("Intranet", "https://intranet.example.com/")
//	b, err := opsboard.New(opsboard.WithTarget(t))
func WithTarget(t Target) Option {
	return func(cfg *boardConfig) error {
		cfg.targets = append(cfg.targets, t)
		return nil
	}
}

// WithTargets adds multiple sites to the monitored list.
// Equivalent to calling [WithTarget] for each one.
func WithTargets(targets ...Target) Option {
	return func(cfg *boardConfig) error {
		cfg.targets = append(cfg.targets, targets...)
		return nil
	}
}

// WithStorage sets where history is persisted.
//
// Defaults to process-local memory, which is lost on exit. Use
// [OpenStorage] with [DriverSQLite] for durable history.
//
// Returns an error if s is nil.
func WithStorage(s Storage) Option {
	return func(cfg *boardConfig) error {
		if s == nil {
			return errors.New("storage cannot be nil")
		}
		cfg.storage = s
		return nil
	}
}

// WithSpeedTest replaces the speed test parameters.
//
// Start from [DefaultSpeedTestConfig] and override the fields you need:
//
//	st := opsboard.DefaultSpeedTestConfig()
//	st.Duration = 5 * time.Second
//	b, err := opsboard.New(opsboard.WithTargets(targets...), opsboard.WithSpeedTest(st))
//
// Returns an error if the configuration is invalid.
func WithSpeedTest(c SpeedTestConfig) Option {
	return func(cfg *boardConfig) error {
		if err := c.Validate(); err != nil {
			return err
		}
		cfg.speedTest = c
		return nil
	}
}

// WithMonitorInterval sets how often [Board.Start] sweeps all targets.
// Defaults to 5 minutes.
//
// Returns an error if the duration is zero or negative.
func WithMonitorInterval(d time.Duration) Option {
	return func(cfg *boardConfig) error {
		if d <= 0 {
			return errors.New("monitor interval must be positive")
		}
		cfg.monitorInterval = d
		return nil
	}
}

// WithMonitorTimeout sets how long each target has to answer before it is
// reported offline. Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithMonitorTimeout(d time.Duration) Option {
	return func(cfg *boardConfig) error {
		if d <= 0 {
			return errors.New("monitor timeout must be positive")
		}
		cfg.monitorTimeout = d
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard server.
//
// The dashboard UI and API will be available at http://localhost:<port>.
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *boardConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithMaxConcurrency sets how many targets a sweep probes at once.
// Defaults to 10.
//
// Returns an error if the value is zero or negative.
func WithMaxConcurrency(n int) Option {
	return func(cfg *boardConfig) error {
		if n <= 0 {
			return errors.New("max concurrency must be positive")
		}
		cfg.maxConcurrency = n
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Board instance.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *boardConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and header.
//
// If not specified, defaults to "IT Operations".
func WithTitle(title string) Option {
	return func(cfg *boardConfig) error {
		cfg.title = title
		return nil
	}
}

// WithSpeedTestCallback registers a function to be called after every
// completed speed test, once the record has been persisted.
//
// Multiple callbacks may be registered; they execute in registration order
// on the speed test's goroutine. Callbacks must be non-blocking. Panics are
// recovered and logged.
//
// Nil callbacks are silently ignored.
func WithSpeedTestCallback(cb func(SpeedRecord)) Option {
	return func(cfg *boardConfig) error {
		if cb == nil {
			return nil
		}
		cfg.speedCallbacks = append(cfg.speedCallbacks, cb)
		return nil
	}
}

// WithSnapshotCallback registers a function to be called after every
// sweep, once the snapshot has been persisted.
//
// Example:
//
//	b, err := opsboard.New(
//	    opsboard.WithTargets(targets...),
//	    opsboard.WithSnapshotCallback(func(s opsboard.MonitorSnapshot) {
//	        for _, r := range s.Results {
//	            if r.Status == opsboard.SiteOffline {
//	                log.Printf("ALERT: %s is down", r.Name)
//	            }
//	        }
//	    }),
//	)
//
// Callbacks must be non-blocking. Panics are recovered and logged.
// Nil callbacks are silently ignored.
func WithSnapshotCallback(cb func(MonitorSnapshot)) Option {
	return func(cfg *boardConfig) error {
		if cb == nil {
			return nil
		}
		cfg.snapshotCallbacks = append(cfg.snapshotCallbacks, cb)
		return nil
	}
}

// withClock replaces the wall clock. Tests use it to drive time.
func withClock(c clock.Clock) Option {
	return func(cfg *boardConfig) error {
		if c == nil {
			return errors.New("clock cannot be nil")
		}
		cfg.clock = c
		return nil
	}
}
