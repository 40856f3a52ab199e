// Package postgres provides PostgreSQL implementations of the persistence
// ports in internal/store, using the pgx driver through database/sql.
//
// Row locks (SELECT ... FOR UPDATE) and the version column together keep
// concurrent grades of the same card from overwriting each other.
package postgres
