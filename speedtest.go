package opsboard

import (
	"context"

	"github.com/jpalmerr/opsboard/internal/sampler"
)

// SpeedTest is a running speed test started by [Board.StartSpeedTest].
type SpeedTest struct {
	run *sampler.Run
}

// Events returns the test's progress stream. The channel is closed when the
// test ends. Events are dropped rather than blocking the test if the reader
// falls behind.
func (t *SpeedTest) Events() <-chan SpeedEvent {
	return t.run.Events()
}

// Done is closed when the test has ended.
func (t *SpeedTest) Done() <-chan struct{} {
	return t.run.Done()
}

// Wait blocks until the test ends. It returns the context's error if the
// test was cancelled, in which case nothing was persisted.
func (t *SpeedTest) Wait() (SpeedResult, error) {
	return t.run.Wait()
}

// Observe delivers the event stream to cb until the test ends, then returns
// the result as [SpeedTest.Wait] does. Callbacks run on the caller's goroutine.
//
// Example:
//
//	res, err := b.StartSpeedTest(ctx).Observe(opsboard.SpeedCallbacks{
//	    OnSpeedUpdate:    func(mbps float64) { fmt.Printf("\r%.2f Mbps", mbps) },
//	    OnProgressUpdate: func(p float64) { bar.Set(p) },
//	})
func (t *SpeedTest) Observe(cb SpeedCallbacks) (SpeedResult, error) {
	sampler.Dispatch(t.run.Events(), cb)
	return t.run.Wait()
}

// StartSpeedTest begins a download speed test in the background.
//
// The test measures latency once, then samples downloads of increasing size
// every interval until the configured duration has elapsed. On completion
// the [SpeedRecord] replaces the previously stored one and speed test
// callbacks fire. Cancelling ctx aborts the test without persisting.
func (b *Board) StartSpeedTest(ctx context.Context) *SpeedTest {
	return &SpeedTest{run: b.sampler.Start(ctx)}
}

// RunSpeedTest runs a speed test to completion and returns its record.
func (b *Board) RunSpeedTest(ctx context.Context) (SpeedRecord, error) {
	res, err := b.StartSpeedTest(ctx).Wait()
	if err != nil {
		return SpeedRecord{}, err
	}
	return res.Record, nil
}

// LastSpeedTest returns the most recently completed speed test, if any.
func (b *Board) LastSpeedTest() (SpeedRecord, bool) {
	return b.records.LastSpeedTest()
}

// SpeedTestConfig returns the parameters speed tests run with.
func (b *Board) SpeedTestConfig() SpeedTestConfig {
	return b.sampler.Config()
}

// speedRecorder persists completed speed tests and fans them out to
// metrics and callbacks.
type speedRecorder struct {
	b *Board
}

func (r speedRecorder) SaveSpeedTest(rec SpeedRecord) {
	r.b.records.SaveSpeedTest(rec)
	r.b.metrics.ObserveSpeedTest(rec)
	for _, cb := range r.b.speedCallbacks {
		invokeCallbackSafe("speed test", cb, rec, r.b.logger)
	}
}
