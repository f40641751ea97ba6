package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/opsboard/record"
)

// backupCmd groups the backup log subcommands.
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Record and review backup runs",
	Long: `Keep a log of backup runs. The newest 50 records are retained.

Example:
  opsboard backup add --status succeeded --summary "nightly NAS sync"
  opsboard backup list
  opsboard backup stats`,
}

var backupAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a backup run",
	Long: `Record a backup run. --date and --time default to now.

Valid statuses: succeeded, failed, in_progress, pending.`,
	Args: cobra.NoArgs,
	RunE: runBackupAdd,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List retained backups, newest first",
	Args:  cobra.NoArgs,
	RunE:  runBackupList,
}

var backupLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent backup",
	Args:  cobra.NoArgs,
	RunE:  runBackupLatest,
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete <timestamp>",
	Short: "Delete the backup recorded at timestamp",
	Long: `Delete the backup whose timestamp matches exactly. Use the TIMESTAMP
column printed by "opsboard backup list".`,
	Args: cobra.ExactArgs(1),
	RunE: runBackupDelete,
}

var backupStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count retained backups by status",
	Args:  cobra.NoArgs,
	RunE:  runBackupStats,
}

func init() {
	backupAddCmd.Flags().String("date", "", "backup date, YYYY-MM-DD (default today)")
	backupAddCmd.Flags().String("time", "", "backup time, HH:MM (default now)")
	backupAddCmd.Flags().String("status", "succeeded", "succeeded, failed, in_progress or pending")
	backupAddCmd.Flags().String("summary", "", "short log summary (required)")

	backupCmd.AddCommand(backupAddCmd, backupListCmd, backupLatestCmd, backupDeleteCmd, backupStatsCmd)
	rootCmd.AddCommand(backupCmd)
}

func runBackupAdd(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")
	st, err := record.ParseBackupStatus(status)
	if err != nil {
		return err
	}

	now := time.Now()
	date, _ := cmd.Flags().GetString("date")
	if date == "" {
		date = now.Format(record.DateLayout)
	}
	clock, _ := cmd.Flags().GetString("time")
	if clock == "" {
		clock = now.Format(record.TimeLayout)
	}
	summary, _ := cmd.Flags().GetString("summary")

	b, _, _, cleanup, err := openBoard(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	rec, err := b.AddBackup(date, clock, st, summary)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s backup %s (%s %s)\n", rec.Status.Label(), rec.ID, rec.Date, rec.Time)
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	b, _, _, cleanup, err := openBoard(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	backups := b.Backups()
	out := cmd.OutOrStdout()
	if len(backups) == 0 {
		fmt.Fprintln(out, "No backups recorded")
		return nil
	}
	return printBackups(out, backups)
}

func printBackups(out io.Writer, backups []record.BackupRecord) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTIME\tSTATUS\tSUMMARY\tTIMESTAMP")
	for _, bk := range backups {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			bk.Date, bk.Time, bk.Status.Label(), bk.LogSummary, bk.Timestamp.Format(time.RFC3339Nano))
	}
	return w.Flush()
}

func runBackupLatest(cmd *cobra.Command, args []string) error {
	b, _, _, cleanup, err := openBoard(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.OutOrStdout()
	bk, ok := b.LatestBackup()
	if !ok {
		fmt.Fprintln(out, "No backups recorded")
		return nil
	}
	fmt.Fprintf(out, "%s on %s at %s, recorded %s\n", bk.Status.Label(), bk.Date, bk.Time, humanize.Time(bk.Timestamp))
	fmt.Fprintf(out, "  %s\n", bk.LogSummary)
	return nil
}

func runBackupDelete(cmd *cobra.Command, args []string) error {
	ts, err := time.Parse(time.RFC3339Nano, args[0])
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: expected RFC 3339", args[0])
	}

	b, _, _, cleanup, err := openBoard(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if b.DeleteBackup(ts) == 0 {
		return fmt.Errorf("no backup recorded at %s", args[0])
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Deleted 1 backup")
	return nil
}

func runBackupStats(cmd *cobra.Command, args []string) error {
	b, _, _, cleanup, err := openBoard(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	counts := b.BackupCounts()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	total := 0
	for _, st := range record.BackupStatuses {
		fmt.Fprintf(w, "%s\t%d\n", st.Label(), counts[st])
		total += counts[st]
	}
	fmt.Fprintf(w, "Total\t%d\n", total)
	return w.Flush()
}
