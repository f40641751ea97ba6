package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/opsboard"
)

func main() {
	// start mock server (see mock_server.go)
	go StartMockServer(":9999")
	time.Sleep(100 * time.Millisecond)

	// three fake sites plus one real one
	targets := []opsboard.Target{
		opsboard.MustTarget("Intranet", "http://localhost:9999/site/intranet"),
		opsboard.MustTarget("Mail", "http://localhost:9999/site/mail"),
		opsboard.MustTarget("Helpdesk", "http://localhost:9999/site/helpdesk"),
		opsboard.MustTarget("GitHub", "https://github.com/"),
	}

	// speed test against the mock download endpoint
	speed := opsboard.DefaultSpeedTestConfig()
	speed.Endpoint = "http://localhost:9999/down"
	speed.Duration = 5 * time.Second

	store, closeStore, err := opsboard.OpenStorage(opsboard.DriverSQLite, "example.db")
	if err != nil {
		slog.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	b, err := opsboard.New(
		opsboard.WithTitle("Demo Office"),
		opsboard.WithTargets(targets...),
		opsboard.WithStorage(store),
		opsboard.WithSpeedTest(speed),
		opsboard.WithMonitorInterval(30*time.Second),
		opsboard.WithPort(8080),
		opsboard.WithSpeedTestCallback(func(r opsboard.SpeedRecord) {
			slog.Info("speed test finished", "download_mbps", r.Download, "ping_ms", r.Ping)
		}),
		opsboard.WithSnapshotCallback(func(s opsboard.MonitorSnapshot) {
			for _, r := range s.Results {
				if r.Status == opsboard.SiteOffline {
					slog.Warn("site offline", "name", r.Name, "error", r.Error)
				}
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create opsboard", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	if _, err := b.AddBackup(time.Now().Format("2006-01-02"), "02:00", opsboard.BackupSucceeded, "demo nightly sync"); err != nil {
		slog.Error("failed to record backup", "error", err)
	}

	fmt.Println()
	fmt.Println("  opsboard demo")
	fmt.Println()
	fmt.Println("  Open http://localhost:8080 in your browser")
	fmt.Println()
	fmt.Println("  Sites: 3 mock (flip every 20-60s) and GitHub, swept every 30s")
	fmt.Println("  Speed test: 5s against the mock download endpoint")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := b.Start(ctx); err != nil {
		slog.Error("opsboard error", "error", err)
		os.Exit(1)
	}
}
