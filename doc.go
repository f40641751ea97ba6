// Package opsboard provides an embeddable IT-operations dashboard: internet
// speed tests, website up/down monitoring and a manually kept backup log,
// all backed by a local history store.
//
// opsboard is designed as an SDK-first library. A [Board] owns the history
// and the engines that write to it, and can be driven directly from Go code
// or served as a web dashboard with [Board.Start].
//
// # Quick Start
//
//	b, _ := opsboard.New(opsboard.WithTargets(opsboard.DefaultTargets()...))
//	defer b.Close()
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	b.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// opsboard uses the functional options pattern for configuration:
//
//	store, closeStore, err := opsboard.OpenStorage(opsboard.DriverSQLite, "opsboard.db")
//	if err != nil { ... }
//	defer closeStore()
//
//	b, err := opsboard.New(
//	    opsboard.WithStorage(store),
//	    opsboard.WithTargets(targets...),
//	    opsboard.WithMonitorInterval(time.Minute),
//	    opsboard.WithPort(9090),
//	)
//
// # Speed Tests
//
// A speed test measures latency once, then issues downloads of growing size
// every second for ten seconds. Samples at or above 10,000 Mbps are treated
// as measurement artifacts and discarded. The aggregate throughput over all
// accepted bytes becomes the recorded download speed:
//
//	res, err := b.StartSpeedTest(ctx).Observe(opsboard.SpeedCallbacks{
//	    OnSpeedUpdate: func(mbps float64) { fmt.Printf("\r%.2f Mbps", mbps) },
//	})
//
// Only the most recent [SpeedRecord] is kept.
//
// # Monitoring
//
// [Board.Sweep] probes every target concurrently with a HEAD request. Any
// response at all counts as online; a timeout or network error is offline.
// Each sweep is appended to the monitoring history, which keeps the newest
// 100 snapshots.
//
// # Backups
//
// Backup runs are recorded by hand with [Board.AddBackup]. The history keeps
// the newest 50 records; each is identified by its creation timestamp.
//
// # Architecture
//
// opsboard consists of several internal packages (under internal/):
//
//   - internal/storage: key/value port with memory and SQLite implementations
//   - internal/history: JSON-encoded capped lists and single slots over a port
//   - internal/probe: HTTP latency, download and reachability probes
//   - internal/sampler: the speed test engine
//   - internal/monitor: concurrent sweeps and the periodic scheduler
//   - internal/metrics: Prometheus collectors
//   - internal/server: HTTP server with REST API and Server-Sent Events
//   - dashboard: Embedded web UI assets
//
// The internal packages are not part of the public API and may change
// without notice. Record types live in package record and are re-exported
// here.
package opsboard
