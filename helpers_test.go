package opsboard

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newSiteServer returns a server answering every request with status.
func newSiteServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(ts.Close)
	return ts
}

// newSpeedServer returns a server that answers ?bytes=n with n bytes.
func newSpeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.ParseInt(r.URL.Query().Get("bytes"), 10, 64)
		if err != nil || n < 0 {
			http.Error(w, "bad bytes", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Length", strconv.FormatInt(n, 10))
		_, _ = io.CopyN(w, strings.NewReader(strings.Repeat("0", int(n))), n)
	}))
	t.Cleanup(ts.Close)
	return ts
}

// fastSpeedTest returns a short speed test against endpoint with a ceiling
// high enough that loopback samples are never rejected.
func fastSpeedTest(endpoint string) SpeedTestConfig {
	cfg := DefaultSpeedTestConfig()
	cfg.Endpoint = endpoint
	cfg.Duration = 200 * time.Millisecond
	cfg.Interval = 50 * time.Millisecond
	cfg.Step = 100 * time.Millisecond
	cfg.Sizes = []int64{16 << 10, 64 << 10}
	cfg.MaxMbps = 1e9
	return cfg
}

// mustTarget is NewTarget that fails the test on error.
func mustTarget(t *testing.T, name, rawURL string) Target {
	t.Helper()
	target, err := NewTarget(name, rawURL)
	if err != nil {
		t.Fatalf("NewTarget() error = %v", err)
	}
	return target
}
