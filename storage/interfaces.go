package storage

import (
	"context"
	"errors"

	"car-deal-finder/models"
)

// ErrNotFound is returned when a requested listing does not exist.
var ErrNotFound = errors.New("listing not found")

// ListingStore is the keyed listing collection every backend must satisfy.
// The listing URL is the dedup key.
type ListingStore interface {
	// UpsertIfAbsent inserts l unless a listing with the same URL exists.
	// It reports whether a write happened and is atomic with respect to the
	// URL uniqueness check.
	UpsertIfAbsent(ctx context.Context, l *models.Listing) (bool, error)
	// All returns every listing in insertion order.
	All(ctx context.Context) ([]*models.Listing, error)
	// GetByID returns ErrNotFound for unknown ids.
	GetByID(ctx context.Context, id string) (*models.Listing, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// RawRowWriter persists unprocessed rows for auditing.
type RawRowWriter interface {
	WriteRaw(source, city string, rows []*models.RawRow) error
	Close() error
}
