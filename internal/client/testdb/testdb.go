// Package testdb opens a migrated local store database for tests.
package testdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/vaxtrace/vaxsync/internal/client/migrations"
	_ "modernc.org/sqlite"
)

// Open creates a fresh database file under t.TempDir and applies the
// embedded migrations.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := migrations.Up(context.Background(), db); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return db
}
