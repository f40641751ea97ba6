package opsboard

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jpalmerr/opsboard/internal/clock"
)

func newBackupBoard(t *testing.T, clk clock.Clock) *Board {
	t.Helper()
	b, err := New(
		WithTarget(mustTarget(t, "Test", "https://example.com")),
		WithLogger(testLogger()),
		withClock(clk),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return b
}

func TestNewBackup(t *testing.T) {
	now := time.Date(2025, 3, 10, 22, 15, 0, 0, time.UTC)
	b := newBackupBoard(t, clock.NewFake(now))

	tests := []struct {
		name    string
		date    string
		clock   string
		status  BackupStatus
		summary string
		wantErr bool
	}{
		{name: "valid", date: "2025-03-10", clock: "22:00", status: BackupSucceeded, summary: "nightly ok"},
		{name: "bad date", date: "10/03/2025", clock: "22:00", status: BackupSucceeded, summary: "x", wantErr: true},
		{name: "bad time", date: "2025-03-10", clock: "10pm", status: BackupSucceeded, summary: "x", wantErr: true},
		{name: "unknown status", date: "2025-03-10", clock: "22:00", status: "done", summary: "x", wantErr: true},
		{name: "empty summary", date: "2025-03-10", clock: "22:00", status: BackupFailed, summary: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := b.NewBackup(tt.date, tt.clock, tt.status, tt.summary)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewBackup() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if rec.ID == "" {
				t.Error("ID should not be empty")
			}
			if !rec.Timestamp.Equal(now) {
				t.Errorf("Timestamp = %v, want %v", rec.Timestamp, now)
			}
		})
	}

	if n := len(b.Backups()); n != 0 {
		t.Errorf("NewBackup() persisted %d records, want 0", n)
	}
}

func TestAddBackup_NewestFirstAndUniqueTimestamps(t *testing.T) {
	now := time.Date(2025, 3, 10, 22, 15, 0, 0, time.UTC)
	b := newBackupBoard(t, clock.NewFake(now))

	first, err := b.AddBackup("2025-03-09", "22:00", BackupSucceeded, "first")
	if err != nil {
		t.Fatalf("AddBackup() error = %v", err)
	}
	// fake clock has not moved, so the second record collides
	second, err := b.AddBackup("2025-03-10", "22:00", BackupFailed, "second")
	if err != nil {
		t.Fatalf("AddBackup() error = %v", err)
	}

	if second.Timestamp.Equal(first.Timestamp) {
		t.Errorf("timestamps collide: %v", second.Timestamp)
	}
	if first.ID == second.ID {
		t.Errorf("IDs collide: %v", first.ID)
	}

	list := b.Backups()
	if len(list) != 2 {
		t.Fatalf("len(Backups()) = %d, want 2", len(list))
	}
	if list[0].LogSummary != "second" {
		t.Errorf("Backups()[0] = %q, want %q", list[0].LogSummary, "second")
	}

	latest, ok := b.LatestBackup()
	if !ok || latest.ID != second.ID {
		t.Errorf("LatestBackup() = %v, %v, want %v", latest.ID, ok, second.ID)
	}
}

func TestSaveBackup_FillsMissingFields(t *testing.T) {
	now := time.Date(2025, 3, 10, 22, 15, 0, 0, time.UTC)
	b := newBackupBoard(t, clock.NewFake(now))

	saved, err := b.SaveBackup(BackupRecord{
		Date:       "2025-03-10",
		Time:       "08:30",
		Status:     BackupInProgress,
		LogSummary: "copy running",
	})
	if err != nil {
		t.Fatalf("SaveBackup() error = %v", err)
	}
	if saved.ID == "" {
		t.Error("ID should be generated")
	}
	if !saved.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", saved.Timestamp, now)
	}

	if _, err := b.SaveBackup(BackupRecord{Date: "bad"}); err == nil {
		t.Error("SaveBackup(invalid) expected error, got nil")
	}
}

func TestDeleteBackup(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 3, 10, 22, 15, 0, 0, time.UTC))
	b := newBackupBoard(t, clk)

	keep, _ := b.AddBackup("2025-03-09", "22:00", BackupSucceeded, "keep")
	clk.Advance(time.Minute)
	drop, _ := b.AddBackup("2025-03-10", "22:00", BackupFailed, "drop")

	if n := b.DeleteBackup(drop.Timestamp); n != 1 {
		t.Errorf("DeleteBackup() = %d, want 1", n)
	}
	if n := b.DeleteBackup(drop.Timestamp); n != 0 {
		t.Errorf("DeleteBackup() again = %d, want 0", n)
	}

	list := b.Backups()
	if len(list) != 1 || list[0].ID != keep.ID {
		t.Errorf("Backups() = %v, want only %q", list, keep.ID)
	}
}

func TestBackupCounts_AndMetrics(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 3, 10, 22, 15, 0, 0, time.UTC))
	b := newBackupBoard(t, clk)

	_, _ = b.AddBackup("2025-03-08", "22:00", BackupSucceeded, "a")
	_, _ = b.AddBackup("2025-03-09", "22:00", BackupSucceeded, "b")
	_, _ = b.AddBackup("2025-03-10", "22:00", BackupFailed, "c")

	counts := b.BackupCounts()
	want := map[BackupStatus]int{
		BackupSucceeded:  2,
		BackupFailed:     1,
		BackupInProgress: 0,
		BackupPending:    0,
	}
	for st, n := range want {
		if counts[st] != n {
			t.Errorf("BackupCounts()[%s] = %d, want %d", st, counts[st], n)
		}
	}

	n, err := testutil.GatherAndCount(b.metrics.Registry(), "opsboard_backups")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 4 {
		t.Errorf("opsboard_backups series = %d, want 4", n)
	}
}

func TestBackupsSurviveRestart(t *testing.T) {
	store := NewMemoryStorage()
	target := mustTarget(t, "Test", "https://example.com")

	first, err := New(WithTarget(target), WithStorage(store), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	saved, err := first.AddBackup("2025-03-10", "22:00", BackupSucceeded, "nightly")
	if err != nil {
		t.Fatalf("AddBackup() error = %v", err)
	}

	second, err := New(WithTarget(target), WithStorage(store), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	latest, ok := second.LatestBackup()
	if !ok {
		t.Fatal("LatestBackup() ok = false after restart, want true")
	}
	if latest.ID != saved.ID {
		t.Errorf("LatestBackup().ID = %q, want %q", latest.ID, saved.ID)
	}
}
