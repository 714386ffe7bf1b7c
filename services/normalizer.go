package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"car-deal-finder/models"
)

var (
	// ErrMissingPrice marks an extracted row that cannot become a listing
	// because its price fragment had no digits.
	ErrMissingPrice = errors.New("listing has no price")
	// ErrMissingSource is returned when the caller did not name the origin system.
	ErrMissingSource = errors.New("listing source is empty")
)

// Normalizer assembles extracted fields into canonical listings.
type Normalizer struct {
	region string
	newID  func() string
}

// NewNormalizer creates a Normalizer. region is the location used when an
// extracted row carries none.
func NewNormalizer(region string) *Normalizer {
	return &Normalizer{region: region, newID: uuid.NewString}
}

// Normalize builds a Listing from ext. createdAt is the batch timestamp and
// is shared by every listing of one ingestion call. Valuation fields are
// left zero; the valuation engine fills them.
func (n *Normalizer) Normalize(ext *models.ExtractedListing, source string, createdAt time.Time) (*models.Listing, error) {
	if ext.ListedPrice == nil {
		return nil, ErrMissingPrice
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, ErrMissingSource
	}

	createdAt = createdAt.UTC()
	postedAt := ext.PostedAt.UTC()
	if ext.PostedAt.IsZero() || postedAt.After(createdAt) {
		postedAt = createdAt
	}

	location := ext.Location
	if location == "" {
		location = n.region
	}

	l := &models.Listing{
		ID:          n.newID(),
		Source:      source,
		URL:         ext.URL,
		Title:       ext.Title,
		Description: ext.Title,
		ListedPrice: *ext.ListedPrice,
		Make:        ext.Make,
		Model:       ext.Model,
		Location:    location,
		CreatedAt:   createdAt,
		PostedAt:    postedAt,
	}
	if ext.Year != nil {
		l.Year = models.IntPtr(*ext.Year)
	}
	return l, nil
}
