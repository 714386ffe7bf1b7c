// Package stub is an offline Source that produces a deterministic batch of
// Honda Civic rows. It is the default source so the pipeline can run
// without network access.
package stub

import (
	"context"
	"fmt"
	"strings"
	"time"

	"car-deal-finder/models"
	"car-deal-finder/scraper"
)

const name = "stubbed_craigslist"

type Source struct {
	now func() time.Time
}

func New() *Source {
	return &Source{now: time.Now}
}

func (s *Source) Name() string { return name }

// Fetch returns p.MaxResults rows. Row i has price 8000+500i and a URL
// derived from the city, query and index, so repeated calls with the same
// parameters yield the same URLs.
func (s *Source) Fetch(ctx context.Context, p scraper.SearchParams) ([]*models.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fetchedAt := s.now().UTC()
	slug := strings.ReplaceAll(p.Query, " ", "-")

	rows := make([]*models.RawRow, 0, max(p.MaxResults, 0))
	for i := 0; i < p.MaxResults; i++ {
		rows = append(rows, &models.RawRow{
			Title:     fmt.Sprintf("201%d Honda Civic LX", 5+i),
			PriceText: fmt.Sprintf("$%d", 8000+500*i),
			DateText:  fetchedAt.Format(time.RFC3339),
			URL:       fmt.Sprintf("https://example.com/%s/%s/%d", p.City, slug, i),
			FetchedAt: fetchedAt,
		})
	}
	return rows, nil
}
