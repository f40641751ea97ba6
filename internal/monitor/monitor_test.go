package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jpalmerr/opsboard/internal/clock"
	"github.com/jpalmerr/opsboard/internal/probe"
	"github.com/jpalmerr/opsboard/record"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var epoch = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// fakeProber answers from a per-URL table after an optional per-URL delay.
type fakeProber struct {
	delays  map[string]time.Duration
	offline map[string]bool

	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeProber) Reachable(ctx context.Context, target string, timeout time.Duration) probe.Reachability {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if d := f.delays[target]; d > 0 {
		time.Sleep(d)
	}
	if f.offline[target] {
		return probe.Reachability{Elapsed: 5 * time.Millisecond, Err: errors.New("connection refused")}
	}
	return probe.Reachability{Online: true, Elapsed: 12 * time.Millisecond}
}

type memRecorder struct {
	mu        sync.Mutex
	snapshots []record.MonitorSnapshot
}

func (m *memRecorder) SaveMonitoring(s record.MonitorSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, s)
}

func (m *memRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshots)
}

func targets(n int) []record.Target {
	out := make([]record.Target, n)
	for i := range out {
		out[i] = record.Target{
			Name: "site-" + string(rune('a'+i)),
			URL:  "https://site-" + string(rune('a'+i)) + ".example.com/",
		}
	}
	return out
}

func TestSweepTargets_TimeoutKeepsOrder(t *testing.T) {
	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer fast.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	list := []record.Target{
		{Name: "one", URL: fast.URL},
		{Name: "two", URL: slow.URL},
		{Name: "three", URL: fast.URL + "/three"},
	}

	rec := &memRecorder{}
	client := probe.NewClient(testLogger())
	defer client.Close()
	m := New(client, rec, nil, WithTimeout(100*time.Millisecond), WithLogger(testLogger()))

	snap := m.SweepTargets(context.Background(), list)

	if len(snap.Results) != 3 {
		t.Fatalf("len(Results) = %d, want 3", len(snap.Results))
	}
	for i, want := range list {
		if snap.Results[i].Name != want.Name {
			t.Errorf("Results[%d].Name = %s, want %s", i, snap.Results[i].Name, want.Name)
		}
	}
	if snap.Results[0].Status != record.SiteOnline || snap.Results[2].Status != record.SiteOnline {
		t.Errorf("targets 1 and 3 should be online, got %s and %s", snap.Results[0].Status, snap.Results[2].Status)
	}
	two := snap.Results[1]
	if two.Status != record.SiteOffline {
		t.Errorf("Results[1].Status = %s, want offline", two.Status)
	}
	if two.Error == "" {
		t.Error("Results[1].Error is empty, want timeout message")
	}
	if rec.count() != 1 {
		t.Errorf("recorded %d snapshots, want 1", rec.count())
	}
}

func TestSweepTargets_OrderIndependentOfCompletion(t *testing.T) {
	list := targets(5)
	p := &fakeProber{delays: map[string]time.Duration{
		list[0].URL: 40 * time.Millisecond,
		list[1].URL: 30 * time.Millisecond,
		list[2].URL: 20 * time.Millisecond,
		list[3].URL: 10 * time.Millisecond,
	}}
	m := New(p, nil, list, WithLogger(testLogger()))

	snap := m.Sweep(context.Background())
	for i, want := range list {
		if snap.Results[i].URL != want.URL {
			t.Errorf("Results[%d].URL = %s, want %s", i, snap.Results[i].URL, want.URL)
		}
	}
}

func TestSweep_StatusFields(t *testing.T) {
	list := targets(2)
	p := &fakeProber{offline: map[string]bool{list[1].URL: true}}
	clk := clock.NewFake(epoch)
	m := New(p, nil, list, WithClock(clk), WithLogger(testLogger()))

	snap := m.Sweep(context.Background())

	if !snap.Timestamp.Equal(epoch) {
		t.Errorf("Timestamp = %v, want %v", snap.Timestamp, epoch)
	}
	up, down := snap.Results[0], snap.Results[1]
	if up.Status != record.SiteOnline || up.Error != "" {
		t.Errorf("Results[0] = %+v, want online without error", up)
	}
	if up.ResponseTimeMs == nil || *up.ResponseTimeMs != 12 {
		t.Errorf("Results[0].ResponseTimeMs = %v, want 12", up.ResponseTimeMs)
	}
	if down.Status != record.SiteOffline || !strings.Contains(down.Error, "refused") {
		t.Errorf("Results[1] = %+v, want offline with error", down)
	}
	if !down.LastChecked.Equal(epoch) {
		t.Errorf("Results[1].LastChecked = %v, want %v", down.LastChecked, epoch)
	}

	if got := record.Summarize(snap); got.State != record.StatePartial || got.Online != 1 {
		t.Errorf("Summarize() = %+v, want partial 1/2", got)
	}
}

func TestSweep_RespectsConcurrencyLimit(t *testing.T) {
	list := targets(8)
	delays := make(map[string]time.Duration, len(list))
	for _, tg := range list {
		delays[tg.URL] = 20 * time.Millisecond
	}
	p := &fakeProber{delays: delays}
	m := New(p, nil, list, WithMaxConcurrency(2), WithLogger(testLogger()))

	m.Sweep(context.Background())

	if peak := p.peak.Load(); peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestSetTargets(t *testing.T) {
	m := New(&fakeProber{}, nil, targets(3), WithLogger(testLogger()))

	next := targets(1)
	m.SetTargets(next)

	got := m.Targets()
	if len(got) != 1 || got[0] != next[0] {
		t.Errorf("Targets() = %v, want %v", got, next)
	}

	// the returned slice is a copy
	got[0].Name = "mutated"
	if m.Targets()[0].Name == "mutated" {
		t.Error("Targets() exposed internal state")
	}

	if snap := m.Sweep(context.Background()); len(snap.Results) != 1 {
		t.Errorf("len(Results) = %d, want 1 after SetTargets", len(snap.Results))
	}
}

func TestOnSnapshot_HooksRunInOrder(t *testing.T) {
	m := New(&fakeProber{}, nil, targets(1), WithLogger(testLogger()))

	var calls []string
	m.OnSnapshot(func(record.MonitorSnapshot) { calls = append(calls, "first") })
	m.OnSnapshot(func(record.MonitorSnapshot) { calls = append(calls, "second") })

	m.Sweep(context.Background())

	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("hook calls = %v, want [first second]", calls)
	}
}

func TestSweepTargets_EmptyList(t *testing.T) {
	rec := &memRecorder{}
	m := New(&fakeProber{}, rec, nil, WithLogger(testLogger()))

	snap := m.SweepTargets(context.Background(), nil)
	if len(snap.Results) != 0 {
		t.Errorf("len(Results) = %d, want 0", len(snap.Results))
	}
	if rec.count() != 1 {
		t.Errorf("recorded %d snapshots, want 1", rec.count())
	}
}

func TestSweepTargets_CancelledIsNotRecorded(t *testing.T) {
	rec := &memRecorder{}
	m := New(&fakeProber{}, rec, targets(2), WithLogger(testLogger()))

	var hooked bool
	m.OnSnapshot(func(record.MonitorSnapshot) { hooked = true })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap := m.Sweep(ctx)
	if len(snap.Results) != 2 {
		t.Errorf("len(Results) = %d, want 2", len(snap.Results))
	}
	if rec.count() != 0 {
		t.Errorf("recorded %d snapshots, want 0", rec.count())
	}
	if hooked {
		t.Error("hooks should not run for a cancelled sweep")
	}
}
