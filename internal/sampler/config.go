package sampler

import (
	"errors"
	"fmt"
	"time"
)

// MiB is the unit of the size staircase.
const MiB int64 = 1024 * 1024

// Default sampling parameters. They reproduce the constants the dashboard
// has always shipped with; none of them is derived from a measurement model.
const (
	DefaultEndpoint = "https://speed.cloudflare.com/__down"
	DefaultDuration = 10 * time.Second
	DefaultInterval = time.Second
	DefaultStep     = 2 * time.Second
	DefaultMaxMbps  = 10000.0
)

// DefaultSizes is the download staircase: 1, 5, 10 and 25 MiB.
func DefaultSizes() []int64 {
	return []int64{1 * MiB, 5 * MiB, 10 * MiB, 25 * MiB}
}

// Config controls one speed test.
type Config struct {
	// Endpoint accepts a bytes=<n> query and returns n bytes.
	Endpoint string
	// Duration is the length of the download phase.
	Duration time.Duration
	// Interval is the time between samples.
	Interval time.Duration
	// Step is how long each staircase size is used before moving up.
	Step time.Duration
	// Sizes is the ascending request size staircase in bytes.
	Sizes []int64
	// MaxMbps is the exclusive upper bound for a plausible sample.
	MaxMbps float64
}

// DefaultConfig returns the default sampling parameters.
func DefaultConfig() Config {
	return Config{
		Endpoint: DefaultEndpoint,
		Duration: DefaultDuration,
		Interval: DefaultInterval,
		Step:     DefaultStep,
		Sizes:    DefaultSizes(),
		MaxMbps:  DefaultMaxMbps,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("speed test endpoint is required")
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %s", c.Duration)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	if c.Step <= 0 {
		return fmt.Errorf("step must be positive, got %s", c.Step)
	}
	if len(c.Sizes) == 0 {
		return errors.New("at least one download size is required")
	}
	for i, n := range c.Sizes {
		if n <= 0 {
			return fmt.Errorf("sizes[%d] must be positive, got %d", i, n)
		}
	}
	if c.MaxMbps <= 0 {
		return fmt.Errorf("max_mbps must be positive, got %v", c.MaxMbps)
	}
	return nil
}

// SizeFor returns the request size for a sample taken elapsed into the
// download phase. The size moves one stair up every Step and stays on the
// last stair once the staircase is exhausted.
func (c Config) SizeFor(elapsed time.Duration) int64 {
	idx := 0
	if elapsed > 0 {
		idx = int(elapsed / c.Step)
	}
	if idx >= len(c.Sizes) {
		idx = len(c.Sizes) - 1
	}
	return c.Sizes[idx]
}

// Accept reports whether a sample speed is plausible: strictly above zero
// and strictly below MaxMbps.
func (c Config) Accept(mbps float64) bool {
	return mbps > 0 && mbps < c.MaxMbps
}

// maxSamples bounds how many download probes one run can dispatch.
func (c Config) maxSamples() int {
	return int(c.Duration/c.Interval) + 2
}
