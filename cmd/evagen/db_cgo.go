//go:build cgo_sqlite

package main

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// initDB opens the database file with mattn/go-sqlite3 in WAL mode so the
// API server and the CLI can share it.
func initDB(path string) (*sql.DB, error) {
	return sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
}
