package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"car-deal-finder/models"
	"car-deal-finder/utils"
)

const pgxInsertSQL = `INSERT INTO listings (` + listingColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	ON CONFLICT (url) DO NOTHING`

// PgxStore is the pgxpool-backed Postgres store. It shares the table layout
// of the lib/pq store and adds batched inserts.
type PgxStore struct {
	pool *pgxpool.Pool
}

// NewPgxStore parses dsn, opens a pool of at most maxConns connections and
// bootstraps the schema.
func NewPgxStore(ctx context.Context, dsn string, maxConns int, logger *utils.Logger) (*PgxStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgx: parse dsn: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 2
	}
	cfg.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgx: connect: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: 10, BaseDelay: 500 * time.Millisecond, Logger: logger}
	if err := retry.Do(ctx, "pgx-ping", pool.Ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgx: %w", err)
	}

	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("pgx: migrate: %w", err)
		}
	}
	return &PgxStore{pool: pool}, nil
}

func (s *PgxStore) UpsertIfAbsent(ctx context.Context, l *models.Listing) (bool, error) {
	tag, err := s.pool.Exec(ctx, pgxInsertSQL, insertArgs(l)...)
	if err != nil {
		return false, fmt.Errorf("pgx: insert %q: %w", l.URL, err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpsertBatch queues every listing in one round trip and reports, per input
// position, whether that listing was inserted.
func (s *PgxStore) UpsertBatch(ctx context.Context, listings []*models.Listing) ([]bool, error) {
	inserted := make([]bool, len(listings))
	if len(listings) == 0 {
		return inserted, nil
	}

	b := &pgx.Batch{}
	for _, l := range listings {
		b.Queue(pgxInsertSQL, insertArgs(l)...)
	}

	br := s.pool.SendBatch(ctx, b)
	for i := range listings {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return inserted, fmt.Errorf("pgx: batch insert %q: %w", listings[i].URL, err)
		}
		inserted[i] = tag.RowsAffected() == 1
	}
	if err := br.Close(); err != nil {
		return inserted, fmt.Errorf("pgx: close batch: %w", err)
	}
	return inserted, nil
}

func (s *PgxStore) All(ctx context.Context) ([]*models.Listing, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+listingColumns+` FROM listings ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("pgx: fetch all: %w", err)
	}
	defer rows.Close()

	listings := make([]*models.Listing, 0)
	for rows.Next() {
		l, err := scanPgxListing(rows)
		if err != nil {
			return nil, fmt.Errorf("pgx: scan row: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *PgxStore) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	l, err := scanPgxListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pgx: get %q: %w", id, err)
	}
	return l, nil
}

func (s *PgxStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM listings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgx: count: %w", err)
	}
	return n, nil
}

func (s *PgxStore) Close() error {
	s.pool.Close()
	return nil
}

func insertArgs(l *models.Listing) []any {
	return []any{
		l.ID, l.Source, l.URL, l.Title, l.Description,
		l.ListedPrice, l.PredictedPrice, l.UndervaluePercent,
		l.Year, l.Make, l.Model, l.Mileage,
		l.Location, l.CreatedAt.UTC(), l.PostedAt.UTC(),
	}
}

func scanPgxListing(r pgx.Row) (*models.Listing, error) {
	var l models.Listing
	if err := r.Scan(
		&l.ID, &l.Source, &l.URL, &l.Title, &l.Description,
		&l.ListedPrice, &l.PredictedPrice, &l.UndervaluePercent,
		&l.Year, &l.Make, &l.Model, &l.Mileage,
		&l.Location, &l.CreatedAt, &l.PostedAt,
	); err != nil {
		return nil, err
	}
	l.CreatedAt = l.CreatedAt.UTC()
	l.PostedAt = l.PostedAt.UTC()
	return &l, nil
}
