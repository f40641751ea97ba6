package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/opsboard"
	"github.com/jpalmerr/opsboard/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the opsboard dashboard server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start the opsboard dashboard server.

The server will:
  - Load configuration from the specified YAML file (or defaults)
  - Sweep all configured sites immediately, then every monitor interval
  - Serve the dashboard UI, JSON API and /metrics on the configured port

With --watch, edits to the config file swap the monitored sites without a
restart. Other settings need a restart to take effect.

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  opsboard serve
  opsboard serve -c /etc/opsboard/opsboard.yaml --watch`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("watch", false, "reload monitored sites when the config file changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	b, cfg, logger, cleanup, err := openBoard(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("config loaded",
		"targets", len(cfg.Monitor.Targets),
		"storage", cfg.Storage.Driver,
	)
	logger.Info("starting server",
		"port", cfg.Port,
		"monitor_interval", cfg.Monitor.Interval.Duration().String(),
	)

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watch, _ := cmd.Flags().GetBool("watch")
	configFile, _ := cmd.Flags().GetString("config")
	if watch {
		if configFile == "" {
			return fmt.Errorf("--watch requires --config")
		}
		go func() {
			err := config.Watch(ctx, configFile, func(next *config.Config) {
				applyTargets(b, next, logger)
			}, logger)
			if err != nil {
				logger.Error("config watcher stopped", "error", err)
			}
		}()
	}

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- b.Start(ctx)
	}()

	// wait for server to finish
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}

// applyTargets swaps the board's targets for those in next. Invalid lists
// are logged and ignored.
func applyTargets(b *opsboard.Board, next *config.Config, logger *slog.Logger) {
	targets, err := config.BuildTargets(next)
	if err == nil {
		err = b.SetTargets(targets)
	}
	if err != nil {
		logger.Warn("config reload rejected", "error", err)
		return
	}
	logger.Info("targets reloaded", "targets", len(targets))
}
