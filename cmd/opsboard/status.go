package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/opsboard/record"
)

// statusCmd prints the latest stored result of each feature.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest speed test, backup and site check",
	Long: `Print the most recent stored speed test, backup and monitoring snapshot
without running anything.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	b, _, _, cleanup, err := openBoard(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.OutOrStdout()

	if rec, ok := b.LastSpeedTest(); ok {
		fmt.Fprintf(out, "Speed test: %.2f Mbps down, %.0f ms ping (%s)\n",
			rec.Download, rec.Ping, humanize.Time(rec.Timestamp))
	} else {
		fmt.Fprintln(out, "Speed test: never run")
	}

	if bk, ok := b.LatestBackup(); ok {
		fmt.Fprintf(out, "Backup:     %s on %s at %s (%s)\n",
			bk.Status.Label(), bk.Date, bk.Time, humanize.Time(bk.Timestamp))
	} else {
		fmt.Fprintln(out, "Backup:     none recorded")
	}

	if snap, ok := b.LatestMonitoring(); ok {
		o := record.Summarize(snap)
		fmt.Fprintf(out, "Sites:      %d/%d online, %s (%s)\n",
			o.Online, o.Total, o.State, humanize.Time(snap.Timestamp))
	} else {
		fmt.Fprintln(out, "Sites:      never checked")
	}
	return nil
}
