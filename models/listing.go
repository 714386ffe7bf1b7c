package models

import "time"

// RawRow holds one search-result row exactly as the source rendered it.
// Every field is free text; nothing has been validated yet.
type RawRow struct {
	Title        string
	PriceText    string
	Neighborhood string
	DateText     string
	URL          string
	FetchedAt    time.Time
}

// ExtractedListing is the typed view of a RawRow produced by the field
// extractor. ListedPrice and Year are nil when they could not be inferred.
type ExtractedListing struct {
	Title       string
	URL         string
	ListedPrice *int
	Location    string
	PostedAt    time.Time
	Year        *int
	Make        string
	Model       string
}

// Listing is the normalized, valued record kept by the listing store.
// PredictedPrice and UndervaluePercent are always derived from ListedPrice.
type Listing struct {
	ID                string    `json:"id"`
	Source            string    `json:"source"`
	URL               string    `json:"url"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	ListedPrice       int       `json:"listed_price"`
	PredictedPrice    int       `json:"predicted_price"`
	UndervaluePercent float64   `json:"undervalue_percent"`
	Year              *int      `json:"year"`
	Make              string    `json:"make"`
	Model             string    `json:"model"`
	Mileage           *int      `json:"mileage"`
	Location          string    `json:"location"`
	CreatedAt         time.Time `json:"created_at"`
	PostedAt          time.Time `json:"posted_at"`
}

// Clone returns a deep copy so stores can hand out listings without sharing
// the nullable fields.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	c := *l
	if l.Year != nil {
		y := *l.Year
		c.Year = &y
	}
	if l.Mileage != nil {
		m := *l.Mileage
		c.Mileage = &m
	}
	return &c
}

// IntPtr is a small helper for the nullable integer columns.
func IntPtr(v int) *int { return &v }
