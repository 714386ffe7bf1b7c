package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-deal-finder/models"
	"car-deal-finder/utils"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		input  string
		want   int
		wantOK bool
	}{
		{"$8,500", 8500, true},
		{"8.500 €", 8500, true},
		{"  $12 000 obo", 12000, true},
		{"$0", 0, true},
		{"call for price", 0, false},
		{"", 0, false},
		{"$99999999999999999999999", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParsePrice(tt.input)
		assert.Equal(t, tt.wantOK, ok, "ParsePrice(%q) ok", tt.input)
		assert.Equal(t, tt.want, got, "ParsePrice(%q)", tt.input)
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		city, hood, want string
	}{
		{"austin", "(south austin)", "austin (south austin)"},
		{"austin", "  ( round rock )  ", "austin (round rock)"},
		{"austin", "", "austin"},
		{"austin", "()", "austin"},
		{"", "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLocation(tt.city, tt.hood), "ParseLocation(%q, %q)", tt.city, tt.hood)
	}
}

func TestParsePostedAt(t *testing.T) {
	fallback := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339 with zone", "2026-02-27T08:15:00-06:00", time.Date(2026, 2, 27, 14, 15, 0, 0, time.UTC)},
		{"fractional seconds", "2026-02-27T08:15:00.5Z", time.Date(2026, 2, 27, 8, 15, 0, 500000000, time.UTC)},
		{"craigslist datetime attribute", "2026-02-27 08:15", time.Date(2026, 2, 27, 8, 15, 0, 0, time.UTC)},
		{"no zone is utc", "2026-02-27T08:15:00", time.Date(2026, 2, 27, 8, 15, 0, 0, time.UTC)},
		{"bare date", "2026-02-27", time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)},
		{"empty", "", fallback},
		{"garbage", "yesterday", fallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePostedAt(tt.input, fallback)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestInferVehicle(t *testing.T) {
	tests := []struct {
		title     string
		wantYear  *int
		wantMake  string
		wantModel string
	}{
		{"2015 Honda Civic LX", models.IntPtr(2015), "Honda", "Civic LX"},
		{"1998 Jeep Cherokee", models.IntPtr(1998), "Jeep", "Cherokee"},
		{"2015 Honda", models.IntPtr(2015), "", ""},
		{"20110 Honda Civic LX", nil, "", ""},
		{"Honda Civic 2015", nil, "", ""},
		{"'15 Civic", nil, "", ""},
		{"", nil, "", ""},
	}
	for _, tt := range tests {
		year, maker, model := InferVehicle(tt.title)
		assert.Equal(t, tt.wantYear, year, "year for %q", tt.title)
		assert.Equal(t, tt.wantMake, maker, "make for %q", tt.title)
		assert.Equal(t, tt.wantModel, model, "model for %q", tt.title)
	}
}

func TestExtractDropsAndCaps(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := NewExtractor(utils.NewNopLogger())

	rows := []*models.RawRow{
		{Title: "  2014   Toyota  Camry SE ", PriceText: "$7,900", Neighborhood: "(north)", URL: "https://a/1"},
		{Title: "", PriceText: "$100", URL: "https://a/2"},
		nil,
		{Title: "No url here", PriceText: "$100"},
		{Title: "Ford Focus", PriceText: "call", URL: "https://a/3", DateText: "2026-02-01"},
		{Title: "2019 Kia Soul", PriceText: "$9,000", URL: "https://a/4"},
	}

	got, dropped := e.extract(rows, ExtractOptions{City: "austin", Max: 2, Now: now})
	require.Len(t, got, 2)
	assert.Equal(t, 3, dropped)

	first := got[0]
	assert.Equal(t, "2014 Toyota Camry SE", first.Title)
	require.NotNil(t, first.ListedPrice)
	assert.Equal(t, 7900, *first.ListedPrice)
	assert.Equal(t, "austin (north)", first.Location)
	assert.Equal(t, now, first.PostedAt)
	assert.Equal(t, "Toyota", first.Make)
	assert.Equal(t, "Camry SE", first.Model)

	second := got[1]
	assert.Equal(t, "https://a/3", second.URL)
	assert.Nil(t, second.ListedPrice, "missing price is kept as absent")
	assert.Nil(t, second.Year)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), second.PostedAt)

	assert.Len(t, e.Extract(rows, ExtractOptions{City: "austin", Now: now}), 3, "no cap")
}
