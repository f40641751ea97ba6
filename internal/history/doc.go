// Package history persists speed tests, backup events and monitoring
// snapshots through a storage port.
//
// This package is internal to opsboard. All reads and writes go through an
// injected [storage.Port], so everything here can be exercised against an
// in-memory port in tests.
//
// The main components are:
//
//   - [Store]: generic JSON operations (SaveLatest, Load, AppendCapped,
//     GetAll, GetLatest, DeleteWhere) plus change notifications
//   - [Records]: typed accessors for each record kind and its retention cap
//
// Reads never fail: a missing or corrupt slot is treated as empty. Writes
// never fail either, from the caller's point of view: storage errors are
// logged and the operation is dropped.
package history
