package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"car-deal-finder/models"
)

// listingColumns is the column order shared by every insert and select.
const listingColumns = `id, source, url, title, description, listed_price, predicted_price,
	undervalue_percent, year, make, model, mileage, location, created_at, posted_at`

// dialect captures what differs between the database/sql backends.
type dialect struct {
	name   string
	schema []string
	// bind renders the n-th (1-based) placeholder.
	bind func(n int) string
}

// SQLStore implements ListingStore on top of database/sql. The listings
// table carries a UNIQUE url column and a monotonically increasing seq used
// for insertion order.
type SQLStore struct {
	db *sql.DB
	d  dialect

	insertSQL string
	selectSQL string
	byIDSQL   string
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, d: d}

	placeholders := make([]string, 15)
	for i := range placeholders {
		placeholders[i] = d.bind(i + 1)
	}
	s.insertSQL = `INSERT INTO listings (` + listingColumns + `)
		VALUES (` + strings.Join(placeholders, ",") + `)
		ON CONFLICT (url) DO NOTHING`
	s.selectSQL = `SELECT ` + listingColumns + ` FROM listings ORDER BY seq`
	s.byIDSQL = `SELECT ` + listingColumns + ` FROM listings WHERE id = ` + d.bind(1)

	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("%s: migrate: %w", d.name, err)
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range s.d.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) UpsertIfAbsent(ctx context.Context, l *models.Listing) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.insertSQL,
		l.ID, l.Source, l.URL, l.Title, l.Description,
		l.ListedPrice, l.PredictedPrice, l.UndervaluePercent,
		nullableInt(l.Year), l.Make, l.Model, nullableInt(l.Mileage),
		l.Location, l.CreatedAt.UTC(), l.PostedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("%s: insert %q: %w", s.d.name, l.URL, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: rows affected: %w", s.d.name, err)
	}
	return n == 1, nil
}

func (s *SQLStore) All(ctx context.Context) ([]*models.Listing, error) {
	rows, err := s.db.QueryContext(ctx, s.selectSQL)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch all: %w", s.d.name, err)
	}
	defer rows.Close()

	listings := make([]*models.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", s.d.name, err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *SQLStore) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	l, err := scanListing(s.db.QueryRowContext(ctx, s.byIDSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: get %q: %w", s.d.name, id, err)
	}
	return l, nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: count: %w", s.d.name, err)
	}
	return n, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(r rowScanner) (*models.Listing, error) {
	var (
		l                 models.Listing
		year, mileage     sql.NullInt64
		createdAt, posted time.Time
	)
	if err := r.Scan(
		&l.ID, &l.Source, &l.URL, &l.Title, &l.Description,
		&l.ListedPrice, &l.PredictedPrice, &l.UndervaluePercent,
		&year, &l.Make, &l.Model, &mileage,
		&l.Location, &createdAt, &posted,
	); err != nil {
		return nil, err
	}
	if year.Valid {
		l.Year = models.IntPtr(int(year.Int64))
	}
	if mileage.Valid {
		l.Mileage = models.IntPtr(int(mileage.Int64))
	}
	l.CreatedAt = createdAt.UTC()
	l.PostedAt = posted.UTC()
	return &l, nil
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}
