package history

import (
	"time"

	"github.com/jpalmerr/opsboard/record"
)

// Storage keys and retention limits.
const (
	KeySpeedTest  = "lastSpeedTest"
	KeyBackups    = "backup_history"
	KeyMonitoring = "monitoring_history"

	MaxBackups   = 50
	MaxSnapshots = 100
)

// Records exposes the typed accessors for each record kind.
type Records struct {
	store *Store
}

// NewRecords wraps store.
func NewRecords(store *Store) *Records {
	return &Records{store: store}
}

// Store returns the underlying store, e.g. for subscriptions.
func (r *Records) Store() *Store {
	return r.store
}

// SaveSpeedTest replaces the last speed test result.
func (r *Records) SaveSpeedTest(rec record.SpeedRecord) {
	SaveLatest(r.store, KeySpeedTest, rec)
}

// LastSpeedTest returns the most recent speed test, if any.
func (r *Records) LastSpeedTest() (record.SpeedRecord, bool) {
	return Load[record.SpeedRecord](r.store, KeySpeedTest)
}

// SaveBackup prepends b to the backup history (capped at [MaxBackups]).
//
// Timestamps are the primary key: if b's timestamp collides with a retained
// record it is moved forward by the smallest step that makes it unique. The
// stored record is returned.
func (r *Records) SaveBackup(b record.BackupRecord) record.BackupRecord {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	list, _ := read[[]record.BackupRecord](r.store, KeyBackups)
	for timestampTaken(list, b.Timestamp) {
		b.Timestamp = b.Timestamp.Add(time.Nanosecond)
	}

	list = append([]record.BackupRecord{b}, list...)
	if len(list) > MaxBackups {
		list = list[:MaxBackups]
	}
	r.store.write(KeyBackups, list)
	return b
}

func timestampTaken(list []record.BackupRecord, ts time.Time) bool {
	for _, b := range list {
		if b.Timestamp.Equal(ts) {
			return true
		}
	}
	return false
}

// Backups returns every retained backup, newest first.
func (r *Records) Backups() []record.BackupRecord {
	return GetAll[record.BackupRecord](r.store, KeyBackups)
}

// LatestBackup returns the newest backup, if any.
func (r *Records) LatestBackup() (record.BackupRecord, bool) {
	return GetLatest[record.BackupRecord](r.store, KeyBackups)
}

// DeleteBackup removes the backup whose timestamp equals ts and reports how
// many records were removed.
func (r *Records) DeleteBackup(ts time.Time) int {
	return DeleteWhere(r.store, KeyBackups, func(b record.BackupRecord) bool {
		return b.Timestamp.Equal(ts)
	})
}

// SaveMonitoring prepends a snapshot to the monitoring history (capped at
// [MaxSnapshots]).
func (r *Records) SaveMonitoring(s record.MonitorSnapshot) {
	AppendCapped(r.store, KeyMonitoring, s, MaxSnapshots)
}

// MonitoringHistory returns every retained snapshot, newest first.
func (r *Records) MonitoringHistory() []record.MonitorSnapshot {
	return GetAll[record.MonitorSnapshot](r.store, KeyMonitoring)
}

// LatestMonitoring returns the newest snapshot, if any.
func (r *Records) LatestMonitoring() (record.MonitorSnapshot, bool) {
	return GetLatest[record.MonitorSnapshot](r.store, KeyMonitoring)
}
