// Package record defines the persisted data model shared by the opsboard SDK,
// its internal engine packages and the HTTP API.
//
// Every type here is a plain value that serializes to camelCase JSON. Records
// are immutable once created: a new speed test replaces the previous
// [SpeedRecord], backups are only added or deleted, and monitoring snapshots
// are only appended.
package record

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SpeedRecord is the outcome of one complete speed test.
type SpeedRecord struct {
	// Download is the aggregate throughput in Mbps over the whole test.
	Download float64 `json:"download"`
	// Ping is the latency probe result in milliseconds; 0 when the probe failed.
	Ping float64 `json:"ping"`
	// MaxSpeed is the highest accepted instantaneous sample in Mbps.
	MaxSpeed float64 `json:"maxSpeed"`
	// Timestamp is when the test completed.
	Timestamp time.Time `json:"timestamp"`
}

// BackupStatus is the outcome reported for a backup run.
type BackupStatus string

const (
	BackupSucceeded  BackupStatus = "succeeded"
	BackupFailed     BackupStatus = "failed"
	BackupInProgress BackupStatus = "in_progress"
	BackupPending    BackupStatus = "pending"
)

// BackupStatuses lists every valid status in display order.
var BackupStatuses = []BackupStatus{BackupSucceeded, BackupFailed, BackupInProgress, BackupPending}

// Valid reports whether s is one of the known backup statuses.
func (s BackupStatus) Valid() bool {
	for _, known := range BackupStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// String returns the status as stored.
func (s BackupStatus) String() string {
	return string(s)
}

// Label returns a human-readable form, e.g. "In progress".
func (s BackupStatus) Label() string {
	str := strings.ReplaceAll(string(s), "_", " ")
	if str == "" {
		return str
	}
	return strings.ToUpper(str[:1]) + str[1:]
}

// ParseBackupStatus converts user input into a [BackupStatus].
func ParseBackupStatus(s string) (BackupStatus, error) {
	st := BackupStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown backup status %q (expected succeeded, failed, in_progress or pending)", s)
	}
	return st, nil
}

// Layouts for the user-entered backup date and time fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// BackupRecord is a manually registered backup event.
//
// Timestamp is the record-creation instant and acts as the primary key:
// it is unique within the retained history and is what deletion matches on.
type BackupRecord struct {
	ID         string       `json:"id"`
	Date       string       `json:"date"`
	Time       string       `json:"time"`
	LogSummary string       `json:"logSummary"`
	Status     BackupStatus `json:"status"`
	Timestamp  time.Time    `json:"timestamp"`
}

// Validate checks the user-supplied fields of a backup record.
func (b BackupRecord) Validate() error {
	if _, err := time.Parse(DateLayout, b.Date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD, got %q", b.Date)
	}
	if _, err := time.Parse(TimeLayout, b.Time); err != nil {
		return fmt.Errorf("time must be HH:MM, got %q", b.Time)
	}
	if !b.Status.Valid() {
		return fmt.Errorf("unknown backup status %q", b.Status)
	}
	if strings.TrimSpace(b.LogSummary) == "" {
		return errors.New("log summary is required")
	}
	return nil
}

// CountByStatus tallies backups per status. Every known status is present
// in the result, with zero when no backup carries it.
func CountByStatus(backups []BackupRecord) map[BackupStatus]int {
	counts := make(map[BackupStatus]int, len(BackupStatuses))
	for _, st := range BackupStatuses {
		counts[st] = 0
	}
	for _, b := range backups {
		counts[b.Status]++
	}
	return counts
}
