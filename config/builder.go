package config

import (
	"fmt"

	"github.com/jpalmerr/opsboard"
)

// BuildTargets converts the configured sites into SDK targets.
func BuildTargets(cfg *Config) ([]opsboard.Target, error) {
	targets := make([]opsboard.Target, 0, len(cfg.Monitor.Targets))
	for i, tc := range cfg.Monitor.Targets {
		t, err := opsboard.NewTarget(tc.Name, tc.URL)
		if err != nil {
			return nil, fmt.Errorf("monitor.targets[%d]: %w", i, err)
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// BuildSpeedTest converts the speed test section into SDK parameters.
func BuildSpeedTest(sc SpeedTestConfig) opsboard.SpeedTestConfig {
	st := opsboard.DefaultSpeedTestConfig()
	st.Endpoint = sc.Endpoint
	st.Duration = sc.Duration.Duration()
	st.Interval = sc.Interval.Duration()
	st.Step = sc.Step.Duration()
	st.MaxMbps = sc.MaxMbps
	st.Sizes = make([]int64, len(sc.SizesMB))
	for i, mb := range sc.SizesMB {
		st.Sizes[i] = int64(mb * bytesPerMB)
	}
	return st
}

// BuildOptions converts parsed configuration into SDK options.
//
// The storage medium is opened here; the returned close function releases
// it and must be called once the board is no longer used. Options that do
// not come from the file, such as the logger, are appended by the caller.
func BuildOptions(cfg *Config) ([]opsboard.Option, func() error, error) {
	targets, err := BuildTargets(cfg)
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := opsboard.OpenStorage(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}

	opts := []opsboard.Option{
		opsboard.WithTitle(cfg.Title),
		opsboard.WithPort(cfg.Port),
		opsboard.WithStorage(store),
		opsboard.WithTargets(targets...),
		opsboard.WithSpeedTest(BuildSpeedTest(cfg.SpeedTest)),
		opsboard.WithMonitorInterval(cfg.Monitor.Interval.Duration()),
		opsboard.WithMonitorTimeout(cfg.Monitor.Timeout.Duration()),
		opsboard.WithMaxConcurrency(cfg.Monitor.MaxConcurrency),
	}
	return opts, closeStore, nil
}
