package opsboard

import (
	"context"
)

// Sweep probes every configured target concurrently and records the
// resulting snapshot. Results keep the configured target order; a target
// that fails to answer within the monitor timeout is reported offline.
func (b *Board) Sweep(ctx context.Context) MonitorSnapshot {
	return b.monitor.Sweep(ctx)
}

// SweepTargets is [Board.Sweep] over a caller-supplied list.
func (b *Board) SweepTargets(ctx context.Context, targets []Target) MonitorSnapshot {
	return b.monitor.SweepTargets(ctx, targets)
}

// Targets returns a copy of the monitored targets.
func (b *Board) Targets() []Target {
	return b.monitor.Targets()
}

// SetTargets replaces the monitored targets. The next sweep uses the new
// list; a sweep already in flight finishes with the old one.
//
// Returns an error if the list is empty or names repeat.
func (b *Board) SetTargets(targets []Target) error {
	if err := validateTargets(targets); err != nil {
		return err
	}
	b.monitor.SetTargets(targets)
	return nil
}

// SaveMonitoring appends a snapshot taken elsewhere to the monitoring
// history, keeping the newest 100.
func (b *Board) SaveMonitoring(s MonitorSnapshot) {
	b.records.SaveMonitoring(s)
	b.metrics.ObserveSnapshot(s)
}

// MonitoringHistory returns the retained snapshots, newest first.
func (b *Board) MonitoringHistory() []MonitorSnapshot {
	return b.records.MonitoringHistory()
}

// LatestMonitoring returns the most recent snapshot, if any.
func (b *Board) LatestMonitoring() (MonitorSnapshot, bool) {
	return b.records.LatestMonitoring()
}

// notifySnapshot fans a completed sweep out to snapshot callbacks.
func (b *Board) notifySnapshot(s MonitorSnapshot) {
	for _, cb := range b.snapshotCallbacks {
		invokeCallbackSafe("snapshot", cb, s, b.logger)
	}
}
