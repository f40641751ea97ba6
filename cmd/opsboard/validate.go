package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/opsboard/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate an opsboard configuration file without starting the server.

This command parses the YAML, applies defaults, expands environment
variables, and validates all fields. It's useful for CI/CD pipelines or
pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  opsboard validate -c opsboard.yaml`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		return errors.New("--config is required")
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	names := make([]string, len(cfg.Monitor.Targets))
	for i, t := range cfg.Monitor.Targets {
		names[i] = t.Name
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Title:         %s\n", cfg.Title)
	fmt.Fprintf(out, "  Port:          %d\n", cfg.Port)
	fmt.Fprintf(out, "  Storage:       %s %s\n", cfg.Storage.Driver, cfg.Storage.Path)
	fmt.Fprintf(out, "  Speed test:    %s over %s\n", cfg.SpeedTest.Endpoint, cfg.SpeedTest.Duration.Duration())
	fmt.Fprintf(out, "  Monitor:       every %s, timeout %s\n",
		cfg.Monitor.Interval.Duration(), cfg.Monitor.Timeout.Duration())
	fmt.Fprintf(out, "  Targets:       %d (%s)\n", len(names), strings.Join(names, ", "))

	return nil
}
