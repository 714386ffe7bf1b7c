package services

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"car-deal-finder/models"
	"car-deal-finder/storage"
	"car-deal-finder/utils"
)

const topDealCount = 5

type InsightService struct {
	store  storage.ListingStore
	logger *utils.Logger
}

func NewInsightService(store storage.ListingStore, logger *utils.Logger) *InsightService {
	return &InsightService{store: store, logger: logger}
}

// Report loads every stored listing and summarizes it.
func (s *InsightService) Report(ctx context.Context) (*models.DealInsights, error) {
	all, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("insights: %w", err)
	}
	s.logger.Debug("[insights] Summarizing %d listings", len(all))
	return s.Generate(all), nil
}

// Generate is pure: listings are expected in insertion order so ties in the
// top deals keep that order.
func (s *InsightService) Generate(listings []*models.Listing) *models.DealInsights {
	report := &models.DealInsights{
		ListingsBySource:   make(map[string]int),
		ListingsByMake:     make(map[string]int),
		ListingsByLocation: make(map[string]int),
		TopDeals:           make([]*models.Listing, 0, topDealCount),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)
	report.MinListedPrice = listings[0].ListedPrice
	report.MaxListedPrice = listings[0].ListedPrice

	var priceTotal, undervalueTotal float64
	for _, l := range listings {
		report.ListingsBySource[l.Source]++
		if l.Make != "" {
			report.ListingsByMake[strings.ToLower(l.Make)]++
		}
		if l.Location != "" {
			report.ListingsByLocation[l.Location]++
		}

		priceTotal += float64(l.ListedPrice)
		undervalueTotal += l.UndervaluePercent
		if l.ListedPrice < report.MinListedPrice {
			report.MinListedPrice = l.ListedPrice
		}
		if l.ListedPrice > report.MaxListedPrice {
			report.MaxListedPrice = l.ListedPrice
		}
	}
	n := float64(len(listings))
	report.AverageListedPrice = round2(priceTotal / n)
	report.AverageUndervalue = round2(undervalueTotal / n)

	ranked := make([]*models.Listing, len(listings))
	copy(ranked, listings)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].UndervaluePercent > ranked[j].UndervaluePercent
	})
	report.BestDeal = ranked[0]
	if len(ranked) > topDealCount {
		ranked = ranked[:topDealCount]
	}
	report.TopDeals = ranked

	return report
}

// Print renders r as a terminal report. Colors follow color.NoColor.
func (s *InsightService) Print(w io.Writer, r *models.DealInsights) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	banner := color.New(color.FgMagenta, color.Bold)
	heading := color.New(color.FgYellow, color.Bold)
	bold := color.New(color.Bold)
	money := color.New(color.FgGreen, color.Bold)

	banner.Fprintf(w, "\n%s\n", sep)
	banner.Fprintln(w, "  🚗 CAR DEAL INSIGHTS")
	banner.Fprintf(w, "%s\n\n", sep)

	heading.Fprintln(w, "  Overview")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total listings : %s\n", bold.Sprint(r.TotalListings))
	for _, kv := range sortedCounts(r.ListingsBySource) {
		fmt.Fprintf(w, "  %-14s : %s\n", truncate(kv.key, 14), bold.Sprint(kv.count))
	}
	fmt.Fprintln(w)

	heading.Fprintln(w, "  Price Statistics")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.TotalListings == 0 {
		fmt.Fprintln(w, "  No price data available")
	} else {
		fmt.Fprintf(w, "  Average listed price : %s\n", money.Sprintf("$%.2f", r.AverageListedPrice))
		fmt.Fprintf(w, "  Minimum listed price : %s\n", money.Sprintf("$%d", r.MinListedPrice))
		fmt.Fprintf(w, "  Maximum listed price : %s\n", money.Sprintf("$%d", r.MaxListedPrice))
		fmt.Fprintf(w, "  Average undervalue   : %s\n", money.Sprintf("%.2f%%", r.AverageUndervalue))
	}
	fmt.Fprintln(w)

	heading.Fprintf(w, "  Top %d Deals\n", topDealCount)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopDeals) == 0 {
		fmt.Fprintln(w, "  No deals found")
	} else {
		for i, l := range r.TopDeals {
			fmt.Fprintf(w, "  %s %-34s $%-7d %s\n",
				bold.Sprintf("%d.", i+1), truncate(l.Title, 32), l.ListedPrice,
				money.Sprintf("%.2f%%", l.UndervaluePercent))
		}
	}
	fmt.Fprintln(w)

	printCounts(w, heading, thin, "Listings by Make", r.ListingsByMake)
	printCounts(w, heading, thin, "Listings by Location", r.ListingsByLocation)

	banner.Fprintf(w, "%s\n\n", sep)
}

type keyCount struct {
	key   string
	count int
}

func sortedCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, v := range m {
		out = append(out, keyCount{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

func printCounts(w io.Writer, heading *color.Color, thin, title string, m map[string]int) {
	heading.Fprintf(w, "  %s\n", title)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(m) == 0 {
		fmt.Fprintln(w, "  No data")
	}
	for _, kv := range sortedCounts(m) {
		bar := strings.Repeat("█", min(kv.count, 40))
		fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(kv.key, 28), bar, kv.count)
	}
	fmt.Fprintln(w)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}
