package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// NewTestDB opens a schema-ready index under t.TempDir holding an empty row
// for each of products. It is closed when the test ends.
func NewTestDB(t *testing.T, products ...string) *sql.DB {
	t.Helper()

	database, err := Open(filepath.Join(t.TempDir(), "index", "galerija.sqlite3"))
	if err != nil {
		t.Fatalf("opening test index: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := EnsureSchema(database); err != nil {
		t.Fatalf("creating test index schema: %v", err)
	}

	for _, id := range products {
		if _, err := database.Exec(`INSERT INTO products (id) VALUES (?)`, id); err != nil {
			t.Fatalf("seeding product %s: %v", id, err)
		}
	}
	return database
}
