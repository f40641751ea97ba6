package opsboard

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/opsboard/record"
)

// NewBackup builds a [BackupRecord] stamped with the board's clock.
//
// date is "YYYY-MM-DD" and clock is "HH:MM", both as entered by the
// operator. The record is validated but not saved; pass it to
// [Board.SaveBackup].
func (b *Board) NewBackup(date, clock string, status BackupStatus, summary string) (BackupRecord, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return BackupRecord{}, fmt.Errorf("generate backup id: %w", err)
	}
	rec := BackupRecord{
		ID:         id.String(),
		Date:       date,
		Time:       clock,
		LogSummary: summary,
		Status:     status,
		Timestamp:  b.clock.Now(),
	}
	if err := rec.Validate(); err != nil {
		return BackupRecord{}, err
	}
	return rec, nil
}

// SaveBackup prepends rec to the backup history, keeping the newest 50.
//
// A missing ID or timestamp is filled in. If the timestamp collides with a
// retained record it is nudged forward so it stays unique; the stored record
// is returned.
func (b *Board) SaveBackup(rec BackupRecord) (BackupRecord, error) {
	if err := rec.Validate(); err != nil {
		return BackupRecord{}, err
	}
	if rec.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return BackupRecord{}, fmt.Errorf("generate backup id: %w", err)
		}
		rec.ID = id.String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = b.clock.Now()
	}

	saved := b.records.SaveBackup(rec)
	b.metrics.ObserveBackups(b.records.Backups())
	b.logger.Info("backup recorded",
		"id", saved.ID,
		"status", saved.Status,
		"date", saved.Date,
		"time", saved.Time,
	)
	return saved, nil
}

// AddBackup is [Board.NewBackup] followed by [Board.SaveBackup].
func (b *Board) AddBackup(date, clock string, status BackupStatus, summary string) (BackupRecord, error) {
	rec, err := b.NewBackup(date, clock, status, summary)
	if err != nil {
		return BackupRecord{}, err
	}
	return b.SaveBackup(rec)
}

// Backups returns the retained backup history, newest first.
func (b *Board) Backups() []BackupRecord {
	return b.records.Backups()
}

// LatestBackup returns the most recently recorded backup, if any.
func (b *Board) LatestBackup() (BackupRecord, bool) {
	return b.records.LatestBackup()
}

// DeleteBackup removes the backup whose timestamp equals ts and reports how
// many records were removed (0 or 1).
func (b *Board) DeleteBackup(ts time.Time) int {
	n := b.records.DeleteBackup(ts)
	if n > 0 {
		b.metrics.ObserveBackups(b.records.Backups())
		b.logger.Info("backup deleted", "timestamp", ts.Format(time.RFC3339Nano))
	}
	return n
}

// BackupCounts tallies the retained history per status. Every status is
// present, with zero when no backup carries it.
func (b *Board) BackupCounts() map[BackupStatus]int {
	return record.CountByStatus(b.records.Backups())
}
