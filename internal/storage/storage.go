// Package storage provides the key/value port the history store persists to.
//
// A [Port] is a minimal get/set capability over string keys and UTF-8 JSON
// values. Two implementations exist: [Memory] for tests and ephemeral runs,
// and [SQLite] for durable single-file storage.
package storage

import (
	"fmt"
	"strings"
)

// Port is a string key/value store.
//
// Implementations must be safe for concurrent use. Get reports ok=false for
// an absent key; err is reserved for failures of the underlying medium.
type Port interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Drivers accepted by [Open].
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Open returns a Port for the named driver. path is ignored for memory.
//
// The returned close function must be called when the port is no longer
// needed; it is a no-op for memory.
func Open(driver, path string) (Port, func() error, error) {
	switch strings.ToLower(driver) {
	case DriverMemory:
		return NewMemory(), func() error { return nil }, nil
	case "", DriverSQLite:
		if path == "" {
			return nil, nil, fmt.Errorf("sqlite storage requires a path")
		}
		db, err := OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q (expected memory or sqlite)", driver)
	}
}
