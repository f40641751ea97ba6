// Package monitor sweeps a list of websites for reachability.
//
// A sweep probes every target concurrently, bounded by a concurrency limit,
// with a hard per-target timeout. The results keep the configured target
// order and are stored as one snapshot. [Scheduler] repeats a sweep on a
// fixed interval.
package monitor
