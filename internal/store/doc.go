// Package store defines the persistence ports of the scheduling engine.
//
// Interfaces here are implemented per SQL dialect under internal/platform.
// All implementations work against DBTX so that a store bound to a *sql.DB
// and one bound to a *sql.Tx (via WithTx) behave the same way, and report
// failures with the sentinel errors declared in errors.go.
package store
