package opsboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// TestStart_BlocksUntilContextCancelled verifies that Start blocks until the
// provided context is cancelled.
func TestStart_BlocksUntilContextCancelled(t *testing.T) {
	up := newSiteServer(t, http.StatusOK)

	// use a high port to avoid conflicts
	b, err := New(
		WithTarget(mustTarget(t, "Test", up.URL)),
		WithPort(19001),
		WithMonitorInterval(100*time.Millisecond),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- b.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)

	// verify Start is still blocking (channel should be empty)
	select {
	case err := <-done:
		t.Fatalf("Start() returned early with error: %v", err)
	default:
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}
}

// TestStart_ReturnsImmediatelyIfContextAlreadyCancelled verifies that Start
// returns immediately without sweeping if the context is already cancelled.
func TestStart_ReturnsImmediatelyIfContextAlreadyCancelled(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer ts.Close()

	b, err := New(
		WithTarget(mustTarget(t, "Test", ts.URL)),
		WithPort(19002),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := b.Start(ctx); err != nil {
		t.Errorf("Start() returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Start() took %v with cancelled context, expected immediate return", elapsed)
	}
	if hits.Load() != 0 {
		t.Errorf("targets probed %d times, want 0", hits.Load())
	}
}

// TestStart_SweepsImmediatelyAndServesAPI verifies the first sweep happens
// on start and the API reflects it.
func TestStart_SweepsImmediatelyAndServesAPI(t *testing.T) {
	up := newSiteServer(t, http.StatusOK)

	swept := make(chan struct{}, 1)
	b, err := New(
		WithTarget(mustTarget(t, "Test", up.URL)),
		WithPort(19003),
		WithLogger(testLogger()),
		WithSnapshotCallback(func(MonitorSnapshot) {
			select {
			case swept <- struct{}{}:
			default:
			}
		}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Start(ctx) }()

	select {
	case <-swept:
	case <-time.After(5 * time.Second):
		t.Fatal("no sweep after Start")
	}

	resp, err := getWithRetry(t, "http://localhost:19003/api/monitor")
	if err != nil {
		t.Fatalf("GET /api/monitor error = %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Snapshot MonitorSnapshot `json:"snapshot"`
		Pending  bool            `json:"pending"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if body.Pending {
		t.Error("pending = true after a sweep, want false")
	}
	if len(body.Snapshot.Results) != 1 || body.Snapshot.Results[0].Status != SiteOnline {
		t.Errorf("results = %+v, want one online result", body.Snapshot.Results)
	}

	metrics, err := getWithRetry(t, "http://localhost:19003/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer metrics.Body.Close()
	text, _ := io.ReadAll(metrics.Body)
	if !strings.Contains(string(text), "opsboard_sweeps_total") {
		t.Error("/metrics missing opsboard_sweeps_total")
	}
}

// TestStart_PortInUse verifies Start reports a bind failure.
func TestStart_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	b, err := New(
		WithTarget(mustTarget(t, "Test", "http://127.0.0.1:1")),
		WithPort(port),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = b.Start(ctx)
	if err == nil {
		t.Fatal("Start() error = nil, want bind failure")
	}
	if !strings.Contains(err.Error(), fmt.Sprintf("port %d", port)) {
		t.Errorf("Start() error = %v, want mention of port %d", err, port)
	}
}

func TestHandler_ServesDashboard(t *testing.T) {
	b, err := New(
		WithTarget(mustTarget(t, "Test", "https://example.com")),
		WithTitle("Ops <Room>"),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "Ops &lt;Room&gt;") {
		t.Error("dashboard should contain the escaped title")
	}
}

// getWithRetry tolerates the short window before the server accepts.
func getWithRetry(t *testing.T, url string) (*http.Response, error) {
	t.Helper()
	var lastErr error
	for i := 0; i < 20; i++ {
		resp, err := http.Get(url)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		time.Sleep(25 * time.Millisecond)
	}
	return nil, lastErr
}
