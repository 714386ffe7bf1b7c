package models

import "time"

// DefaultMinUndervaluePercent is the threshold used when a caller does not
// supply one.
const DefaultMinUndervaluePercent = 15.0

// DealFilter selects listings from the store. Empty string fields mean the
// filter is not applied.
type DealFilter struct {
	MinUndervaluePercent float64
	Make                 string
	Model                string
	Location             string
}

// NewDealFilter returns a filter with the default undervalue threshold and
// no other constraints.
func NewDealFilter() DealFilter {
	return DealFilter{MinUndervaluePercent: DefaultMinUndervaluePercent}
}

// RowFailure records a row that was rejected by the valuation step.
type RowFailure struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Error string `json:"error"`
}

// IngestResult summarizes one ingestion batch.
type IngestResult struct {
	Source     string       `json:"source"`
	City       string       `json:"city"`
	Query      string       `json:"query"`
	CreatedAt  time.Time    `json:"created_at"`
	Inserted   []*Listing   `json:"deals"`
	Duplicates int          `json:"duplicates"`
	Skipped    int          `json:"skipped"`
	Failures   []RowFailure `json:"failures"`
}

// DealInsights holds aggregate statistics over stored listings.
type DealInsights struct {
	TotalListings      int
	ListingsBySource   map[string]int
	AverageListedPrice float64
	MinListedPrice     int
	MaxListedPrice     int
	AverageUndervalue  float64
	BestDeal           *Listing
	TopDeals           []*Listing
	ListingsByMake     map[string]int
	ListingsByLocation map[string]int
}
