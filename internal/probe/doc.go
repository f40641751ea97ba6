// Package probe issues the single HTTP requests opsboard measures with.
//
// This package is internal to opsboard. A probe is one request used to
// measure latency, download throughput or reachability:
//
//   - [Client.Latency]: zero-byte GET against the speed test endpoint
//   - [Client.Download]: sized GET, timed until the body is fully consumed
//   - [Client.Reachable]: HEAD with a hard timeout
//
// Probes never retry. Latency and Reachable fold failures into their result
// values; Download returns an error so the sampler can skip the sample.
package probe
