// Package main is the entry point for the opsboard CLI.
//
// opsboard can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	opsboard serve -c opsboard.yaml   # Start the dashboard
//	opsboard speedtest                # Run one speed test
//	opsboard monitor                  # Sweep all sites once
//	opsboard backup add ...           # Record a backup run
//	opsboard status                   # Show the latest of everything
//	opsboard validate -c config.yaml  # Validate configuration
//	opsboard version                  # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/opsboard"
	"github.com/jpalmerr/opsboard/config"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "opsboard",
	Short: "An IT operations dashboard",
	Long: `opsboard measures internet speed, watches a list of websites and keeps
a log of backup runs, all in a local history database.

Quick start:
  1. Run: opsboard serve
  2. Open http://localhost:8080 in your browser

Every command reads an optional YAML config (-c). Without one, the
built-in defaults are used and history is kept in ./opsboard.db.

Example config:
  port: 8080
  storage:
    path: /var/lib/opsboard/history.db
  monitor:
    interval: 5m
    targets:
      - name: Intranet
        url: https://intranet.example.com/`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional
		_ = godotenv.Load()
	},
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this opsboard binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "opsboard %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file (defaults are used when empty)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")

	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the file named by --config, or the defaults when unset.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// cliLogger builds the logger selected by --log-format and --log-level.
func cliLogger(cmd *cobra.Command) (*slog.Logger, error) {
	format, _ := cmd.Flags().GetString("log-format")
	level, _ := cmd.Flags().GetString("log-level")
	return newLogger(cmd.ErrOrStderr(), format, level)
}

// openBoard loads configuration and creates a board over its storage.
// The returned function closes the board and its storage.
func openBoard(cmd *cobra.Command, extra ...opsboard.Option) (*opsboard.Board, *config.Config, *slog.Logger, func(), error) {
	logger, err := cliLogger(cmd)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	opts, closeStore, err := config.BuildOptions(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	opts = append(opts, opsboard.WithLogger(logger))
	opts = append(opts, extra...)

	b, err := opsboard.New(opts...)
	if err != nil {
		_ = closeStore()
		return nil, nil, nil, nil, fmt.Errorf("failed to create opsboard: %w", err)
	}

	cleanup := func() {
		b.Close()
		if err := closeStore(); err != nil {
			logger.Warn("failed to close storage", "error", err)
		}
	}
	return b, cfg, logger, cleanup, nil
}
