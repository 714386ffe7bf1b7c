// Package scraper defines the fetch side of ingestion: a Source turns a
// search into raw result rows.
package scraper

import (
	"context"

	"car-deal-finder/models"
)

// SearchParams is one search against a classifieds site.
type SearchParams struct {
	City       string
	Query      string
	MaxResults int
}

// Source fetches raw rows. Implementations do no parsing beyond reading
// the text fragments off the page.
type Source interface {
	Name() string
	Fetch(ctx context.Context, p SearchParams) ([]*models.RawRow, error)
}
