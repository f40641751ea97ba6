// Standalone mock server for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/opsboard serve -c example/opsboard.yaml
package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

func main() {
	fmt.Println("Mock server starting on :9999")
	fmt.Println("Sites under /site/{name} flip between up and down")
	fmt.Println("Speed endpoint at /down?bytes=n")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var (
		sites = make(map[string]*mockSite)
		mu    sync.Mutex
	)

	http.HandleFunc("GET /site/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")

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

	http.HandleFunc("GET /down", func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(r.URL.Query().Get("bytes"))
		if err != nil || n < 0 || n > 64<<20 {
			http.Error(w, "bytes must be between 0 and 64MiB", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(n))
		_, _ = w.Write(make([]byte, n))
	})

	if err := http.ListenAndServe(":9999", nil); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

type mockSite struct {
	up           bool
	nextChangeAt time.Time
}
