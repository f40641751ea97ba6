package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/opsboard/record"
)

// monitorCmd sweeps every configured site once.
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Check every configured site once",
	Long: `Probe every configured site concurrently, print the results and append
the snapshot to the monitoring history.

Example:
  opsboard monitor
  opsboard monitor -c opsboard.yaml`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	b, _, _, cleanup, err := openBoard(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snap := b.Sweep(ctx)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("sweep aborted: %w", err)
	}

	return printSnapshot(cmd.OutOrStdout(), snap)
}

// printSnapshot writes one row per site followed by the overall state.
func printSnapshot(out io.Writer, snap record.MonitorSnapshot) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SITE\tSTATUS\tRESPONSE\tURL")
	for _, r := range snap.Results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.Status, responseTime(r), r.URL)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	o := record.Summarize(snap)
	fmt.Fprintf(out, "\n%d/%d online (%s)\n", o.Online, o.Total, o.State)
	return nil
}

func responseTime(s record.SiteStatus) string {
	if s.ResponseTimeMs == nil {
		return "-"
	}
	return fmt.Sprintf("%dms", *s.ResponseTimeMs)
}
