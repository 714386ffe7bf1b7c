package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/lib/pq"

	"car-deal-finder/utils"
)

// postgresSchema is shared by the lib/pq and pgx stores.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS listings (
		seq                BIGSERIAL        PRIMARY KEY,
		id                 TEXT             UNIQUE NOT NULL,
		source             TEXT             NOT NULL,
		url                TEXT             UNIQUE NOT NULL,
		title              TEXT             NOT NULL,
		description        TEXT             NOT NULL DEFAULT '',
		listed_price       INTEGER          NOT NULL,
		predicted_price    INTEGER          NOT NULL,
		undervalue_percent DOUBLE PRECISION NOT NULL,
		year               INTEGER,
		make               TEXT             NOT NULL DEFAULT '',
		model              TEXT             NOT NULL DEFAULT '',
		mileage            INTEGER,
		location           TEXT             NOT NULL,
		created_at         TIMESTAMPTZ      NOT NULL,
		posted_at          TIMESTAMPTZ      NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_undervalue ON listings(undervalue_percent)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_make_model ON listings(lower(make), lower(model))`,
}

// NewPostgresStore opens a lib/pq connection, waits for the server to answer,
// bootstraps the schema and returns a ready-to-use store.
func NewPostgresStore(ctx context.Context, dsn string, maxConns int, logger *utils.Logger) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}

	retry := &utils.RetryConfig{MaxAttempts: 10, BaseDelay: 500 * time.Millisecond, Logger: logger}
	if err := retry.Do(ctx, "postgres-ping", func(ctx context.Context) error {
		return db.PingContext(ctx)
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	s, err := newSQLStore(ctx, db, dialect{
		name:   "postgres",
		schema: postgresSchema,
		bind:   func(n int) string { return "$" + strconv.Itoa(n) },
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
