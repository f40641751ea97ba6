// Package sampler runs the download speed test.
//
// A run moves through idle, measuring_ping, measuring_download and complete.
// During the download phase one probe is dispatched immediately and then one
// per tick, each requesting a size from an ascending staircase. Probes run
// concurrently; their results are folded into running totals by the run
// goroutine alone, so the totals need no lock.
//
// Samples whose throughput is not strictly between zero and the configured
// ceiling are discarded as implausible. When the duration has elapsed the
// in-flight probes are cancelled, completed ones are folded, and the final
// speed is total accepted bytes over the elapsed time.
//
// Progress is reported on a buffered event channel; [Dispatch] adapts it to
// a callback set and [Run.Wait] blocks for the [Result].
package sampler
