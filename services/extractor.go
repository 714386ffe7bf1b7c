package services

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"car-deal-finder/models"
	"car-deal-finder/utils"
)

// postedAtLayouts are the ISO-8601 shapes accepted for a row's date fragment.
var postedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.DateOnly,
}

// ExtractOptions carries the per-batch context the extractor needs.
type ExtractOptions struct {
	// City is combined with a row's neighborhood to form its location.
	City string
	// Max caps the number of extracted rows; zero or negative means no cap.
	Max int
	// Now substitutes for dates that are missing or unparseable.
	Now time.Time
}

// Extractor turns raw result rows into typed fields. It never fails: a
// fragment it cannot read is left absent.
type Extractor struct {
	logger *utils.Logger
}

// NewExtractor creates an Extractor with the given logger.
func NewExtractor(logger *utils.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract processes rows in source order. Rows without a title or URL are
// dropped; rows without a price are kept with ListedPrice nil.
func (e *Extractor) Extract(rows []*models.RawRow, opts ExtractOptions) []*models.ExtractedListing {
	result, _ := e.extract(rows, opts)
	return result
}

// extract also reports how many rows were dropped before the cap was reached.
func (e *Extractor) extract(rows []*models.RawRow, opts ExtractOptions) ([]*models.ExtractedListing, int) {
	result := make([]*models.ExtractedListing, 0, len(rows))
	dropped := 0

	for _, r := range rows {
		if opts.Max > 0 && len(result) >= opts.Max {
			break
		}
		if r == nil {
			dropped++
			continue
		}

		title := normaliseText(r.Title)
		url := strings.TrimSpace(r.URL)
		if title == "" || url == "" {
			e.logger.Info("[extractor] Dropping row without title anchor (title=%q url=%q)", title, url)
			dropped++
			continue
		}

		ext := &models.ExtractedListing{
			Title:    title,
			URL:      url,
			Location: ParseLocation(opts.City, r.Neighborhood),
			PostedAt: ParsePostedAt(r.DateText, opts.Now),
		}
		if price, ok := ParsePrice(r.PriceText); ok {
			ext.ListedPrice = &price
		}
		ext.Year, ext.Make, ext.Model = InferVehicle(title)

		result = append(result, ext)
	}

	e.logger.Debug("[extractor] Extracted %d of %d rows (dropped %d)", len(result), len(rows), dropped)
	return result, dropped
}

// ParsePrice keeps only the digits of text and reads them as a base-10
// integer. It reports false when no digits remain or the value overflows.
//
//	"$8,500"  → 8500
//	"8.500 €" → 8500
//	"call"    → absent
func ParsePrice(text string) (int, bool) {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseLocation combines the search city with an optional neighborhood
// fragment such as "(south austin)".
func ParseLocation(city, neighborhood string) string {
	city = normaliseText(city)
	hood := strings.Trim(strings.TrimSpace(neighborhood), "()")
	hood = normaliseText(hood)
	if hood == "" {
		return city
	}
	return city + " (" + hood + ")"
}

// ParsePostedAt reads an ISO-8601 timestamp. Values without a zone are taken
// as UTC. Anything unreadable yields fallback.
func ParsePostedAt(text string, fallback time.Time) time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return fallback
	}
	for _, layout := range postedAtLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC()
		}
	}
	return fallback
}

// InferVehicle reads "YYYY Make Model words..." off the front of a title.
// This is a best-effort signal: titles that do not lead with a four digit
// year yield no year and empty make/model.
func InferVehicle(title string) (year *int, maker, model string) {
	parts := strings.Fields(title)
	if len(parts) == 0 || !isFourDigits(parts[0]) {
		return nil, "", ""
	}

	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, "", ""
	}
	year = &y

	if len(parts) >= 3 {
		maker = parts[1]
		model = strings.Join(parts[2:], " ")
	}
	return year, maker, model
}

func isFourDigits(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}
