package main

import (
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// maxDownload caps the speed endpoint so a typo cannot stream gigabytes.
const maxDownload = 64 << 20

// mockSite tracks whether a fake site is up and when it next flips.
type mockSite struct {
	up           bool
	nextChangeAt time.Time
}

// StartMockServer runs fake websites and a speed test endpoint on addr.
//
//	/site/{name}  200 or 503, flipping every 20-60 seconds
//	/down?bytes=n n bytes of zeros
//
// Call this in a goroutine before creating the board.
func StartMockServer(addr string) {
	var (
		sites = make(map[string]*mockSite)
		mu    sync.Mutex
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /site/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")

		// simulate small latency variance
		time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)

		mu.Lock()
		site, exists := sites[name]
		if !exists {
			site = &mockSite{
				up:           true,
				nextChangeAt: time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second),
			}
			sites[name] = site
		}
		if time.Now().After(site.nextChangeAt) {
			site.up = !site.up
			site.nextChangeAt = time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second)
			slog.Info("site flipped", "site", name, "up", site.up)
		}
		up := site.up
		mu.Unlock()

		if !up {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /down", func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(r.URL.Query().Get("bytes"))
		if err != nil || n < 0 || n > maxDownload {
			http.Error(w, "bytes must be between 0 and 64MiB", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(n))
		_, _ = w.Write(make([]byte, n))
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}
