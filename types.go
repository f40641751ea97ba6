package opsboard

import (
	"github.com/jpalmerr/opsboard/internal/sampler"
	"github.com/jpalmerr/opsboard/internal/storage"
	"github.com/jpalmerr/opsboard/record"
)

// Record types re-exported from package record.
type (
	SpeedRecord     = record.SpeedRecord
	BackupRecord    = record.BackupRecord
	BackupStatus    = record.BackupStatus
	MonitorSnapshot = record.MonitorSnapshot
	SiteStatus      = record.SiteStatus
	SiteState       = record.SiteState
	Target          = record.Target
	Overall         = record.Overall
)

// Backup statuses.
const (
	BackupSucceeded  = record.BackupSucceeded
	BackupFailed     = record.BackupFailed
	BackupInProgress = record.BackupInProgress
	BackupPending    = record.BackupPending
)

// Site states.
const (
	SiteOnline   = record.SiteOnline
	SiteOffline  = record.SiteOffline
	SiteChecking = record.SiteChecking
)

// Speed test types re-exported from the sampler.
type (
	SpeedTestConfig = sampler.Config
	SpeedEvent      = sampler.Event
	SpeedEventType  = sampler.EventType
	SpeedResult     = sampler.Result
	SpeedCallbacks  = sampler.Callbacks
	Phase           = sampler.Phase
)

// Speed test phases.
const (
	PhaseIdle     = sampler.PhaseIdle
	PhasePing     = sampler.PhasePing
	PhaseDownload = sampler.PhaseDownload
	PhaseComplete = sampler.PhaseComplete
)

// Speed test event types.
const (
	EventPhase    = sampler.EventPhase
	EventSpeed    = sampler.EventSpeed
	EventProgress = sampler.EventProgress
	EventMaxSpeed = sampler.EventMaxSpeed
)

// DefaultSpeedTestConfig returns the default speed test parameters: 10s of
// 1s samples against Cloudflare's speed endpoint, stepping through 1, 5, 10
// and 25 MiB every 2s, discarding samples at or above 10,000 Mbps.
func DefaultSpeedTestConfig() SpeedTestConfig {
	return sampler.DefaultConfig()
}

// Storage is the key/value medium history is persisted to.
type Storage interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Storage drivers accepted by [OpenStorage].
const (
	DriverMemory = storage.DriverMemory
	DriverSQLite = storage.DriverSQLite
)

// OpenStorage opens a storage medium by driver name. The returned close
// function releases it and is safe to call on every driver.
func OpenStorage(driver, path string) (Storage, func() error, error) {
	return storage.Open(driver, path)
}

// NewMemoryStorage returns a process-local storage medium.
func NewMemoryStorage() Storage {
	return storage.NewMemory()
}
