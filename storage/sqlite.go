package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS listings (
		seq                INTEGER PRIMARY KEY AUTOINCREMENT,
		id                 TEXT    NOT NULL UNIQUE,
		source             TEXT    NOT NULL,
		url                TEXT    NOT NULL UNIQUE,
		title              TEXT    NOT NULL,
		description        TEXT    NOT NULL DEFAULT '',
		listed_price       INTEGER NOT NULL,
		predicted_price    INTEGER NOT NULL,
		undervalue_percent REAL    NOT NULL,
		year               INTEGER,
		make               TEXT    NOT NULL DEFAULT '',
		model              TEXT    NOT NULL DEFAULT '',
		mileage            INTEGER,
		location           TEXT    NOT NULL,
		created_at         TIMESTAMP NOT NULL,
		posted_at          TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_undervalue ON listings(undervalue_percent)`,
}

// NewSQLiteStore opens (or creates) the SQLite file at path. Writes go
// through a single connection so the url uniqueness check and the insert
// never interleave with another writer.
func NewSQLiteStore(ctx context.Context, path string) (*SQLStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=off")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	s, err := newSQLStore(ctx, db, dialect{
		name:   "sqlite",
		schema: sqliteSchema,
		bind:   func(int) string { return "?" },
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
