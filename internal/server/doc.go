// Package server provides the HTTP server for the opsboard dashboard and API.
//
// This package is internal to opsboard and handles all HTTP concerns:
//
//   - Dashboard serving: Serves the embedded HTML/CSS/JS dashboard at "/"
//   - REST API: speed test, backup and monitor endpoints under "/api"
//   - Server-Sent Events: live speed test progress and history changes
//   - Metrics: Prometheus exposition at "/metrics"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the opsboard library should not need to interact with this
// package directly. The server is started automatically by [opsboard.Board.Start].
package server
