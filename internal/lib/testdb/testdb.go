// Package testdb opens a migrated in-memory sqlite database for storage tests.
package testdb

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

func New(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, file, _, _ := runtime.Caller(0)
	schema, err := os.ReadFile(filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations", "1_init.up.sql"))
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}

	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	return db
}
