package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/opsboard"
)

// speedtestCmd runs one speed test and stores the result.
var speedtestCmd = &cobra.Command{
	Use:   "speedtest",
	Short: "Run one download speed test",
	Long: `Measure latency and download speed against the configured endpoint.

The result replaces the previously stored speed test. Live progress is shown
when stdout is a terminal. Interrupting the test discards it.

Example:
  opsboard speedtest
  opsboard speedtest -c opsboard.yaml`,
	Args: cobra.NoArgs,
	RunE: runSpeedTest,
}

func init() {
	rootCmd.AddCommand(speedtestCmd)
}

func runSpeedTest(cmd *cobra.Command, args []string) error {
	b, _, _, cleanup, err := openBoard(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	res, err := b.StartSpeedTest(ctx).Observe(progressPrinter(out, isTerminal(out)))
	if err != nil {
		return fmt.Errorf("speed test aborted: %w", err)
	}

	printSpeedResult(out, res)
	return nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// progressPrinter redraws a single status line on a terminal. Elsewhere it
// prints only phase changes.
func progressPrinter(w io.Writer, tty bool) opsboard.SpeedCallbacks {
	var speed, maxSpeed, progress float64
	redraw := func() {
		fmt.Fprintf(w, "\r%5.1f%%  %8.2f Mbps  (max %.2f)", progress, speed, maxSpeed)
	}

	cb := opsboard.SpeedCallbacks{
		OnPhaseChange: func(p opsboard.Phase) {
			switch p {
			case opsboard.PhasePing:
				fmt.Fprintln(w, "Measuring latency...")
			case opsboard.PhaseDownload:
				fmt.Fprintln(w, "Measuring download...")
			case opsboard.PhaseComplete:
				if tty {
					fmt.Fprintln(w)
				}
			}
		},
	}
	if !tty {
		return cb
	}

	cb.OnSpeedUpdate = func(mbps float64) { speed = mbps; redraw() }
	cb.OnMaxSpeedUpdate = func(mbps float64) { maxSpeed = mbps; redraw() }
	cb.OnProgressUpdate = func(p float64) { progress = p; redraw() }
	return cb
}

func printSpeedResult(w io.Writer, res opsboard.SpeedResult) {
	rec := res.Record
	fmt.Fprintf(w, "Download:  %.2f Mbps\n", rec.Download)
	fmt.Fprintf(w, "Max speed: %.2f Mbps\n", rec.MaxSpeed)
	if rec.Ping > 0 {
		fmt.Fprintf(w, "Ping:      %.0f ms\n", rec.Ping)
	} else {
		fmt.Fprintln(w, "Ping:      unavailable")
	}
	fmt.Fprintf(w, "Samples:   %d (%s transferred", res.Samples, humanize.IBytes(uint64(res.TotalBytes)))
	if res.Rejected > 0 {
		fmt.Fprintf(w, ", %d rejected", res.Rejected)
	}
	if res.Failed > 0 {
		fmt.Fprintf(w, ", %d failed", res.Failed)
	}
	fmt.Fprintln(w, ")")
}
