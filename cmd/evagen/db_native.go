//go:build !cgo_sqlite

package main

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// initDB opens the database file with the pure Go driver in WAL mode so the
// API server and the CLI can share it.
func initDB(path string) (*sql.DB, error) {
	return sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
}
