// Package sqlite provides SQLite implementations of the persistence ports in
// internal/store, using the pure-Go modernc.org/sqlite driver. It backs the
// local single-user CLI mode and the repository-level tests.
//
// Timestamps are stored as INTEGER Unix microseconds so that range queries
// compare numerically. SQLite has no row locks; writers are serialised by the
// database lock and lost updates are still caught by the version column.
package sqlite
