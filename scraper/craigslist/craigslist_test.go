package craigslist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-deal-finder/scraper"
	"car-deal-finder/utils"
)

func TestSearchURL(t *testing.T) {
	s := New(Options{Logger: utils.NewNopLogger()})

	tests := []struct {
		name string
		p    scraper.SearchParams
		want string
	}{
		{
			name: "simple city",
			p:    scraper.SearchParams{City: "austin", Query: "honda civic"},
			want: "https://austin.craigslist.org/search/cta?hasPic=1&query=honda+civic&srchType=T",
		},
		{
			name: "city with spaces and caps",
			p:    scraper.SearchParams{City: " San Diego ", Query: "tacoma"},
			want: "https://sandiego.craigslist.org/search/cta?hasPic=1&query=tacoma&srchType=T",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.SearchURL(tt.p))
		})
	}
}

func TestNewClampsRetries(t *testing.T) {
	s := New(Options{MaxRetries: 0, Logger: utils.NewNopLogger()})
	assert.Equal(t, 1, s.retry.MaxAttempts)
	assert.Equal(t, "craigslist", s.Name())
}

func TestToRawRows(t *testing.T) {
	s := New(Options{Logger: utils.NewNopLogger()})
	fetchedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	civic := resultRow{
		Title: "2015 Honda Civic LX",
		URL:   "https://austin.craigslist.org/cto/d/civic/1.html",
		Price: "$8,500",
		Hood:  "(north austin)",
		Date:  "2026-02-28 10:15",
	}
	corolla := resultRow{
		Title: "2016 Toyota Corolla",
		URL:   "https://austin.craigslist.org/cto/d/corolla/2.html",
		Price: "$9,900",
	}

	tests := []struct {
		name     string
		found    []resultRow
		wantURLs []string
	}{
		{"empty page", nil, []string{}},
		{"distinct rows keep page order", []resultRow{corolla, civic}, []string{corolla.URL, civic.URL}},
		{"repeated url keeps first", []resultRow{civic, corolla, civic}, []string{civic.URL, corolla.URL}},
		{"rows without url pass through", []resultRow{{Title: "no link"}, {Title: "no link"}}, []string{"", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := s.toRawRows(tt.found, fetchedAt)
			urls := make([]string, 0, len(rows))
			for _, r := range rows {
				urls = append(urls, r.URL)
				assert.Equal(t, fetchedAt, r.FetchedAt)
			}
			assert.Equal(t, tt.wantURLs, urls)
		})
	}

	t.Run("fields are copied", func(t *testing.T) {
		rows := s.toRawRows([]resultRow{civic}, fetchedAt)
		require.Len(t, rows, 1)
		r := rows[0]
		assert.Equal(t, civic.Title, r.Title)
		assert.Equal(t, civic.Price, r.PriceText)
		assert.Equal(t, civic.Hood, r.Neighborhood)
		assert.Equal(t, civic.Date, r.DateText)
	})
}
