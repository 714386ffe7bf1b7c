package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"car-deal-finder/models"
	"car-deal-finder/storage"
)

// DealQuery is the read path over a ListingStore.
type DealQuery struct {
	store storage.ListingStore
}

func NewDealQuery(store storage.ListingStore) *DealQuery {
	return &DealQuery{store: store}
}

// Find returns the listings matching f, best deal first. Listings with equal
// undervalue keep the store's insertion order.
func (q *DealQuery) Find(ctx context.Context, f models.DealFilter) ([]*models.Listing, error) {
	all, err := q.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	out := make([]*models.Listing, 0, len(all))
	for _, l := range all {
		if matches(l, f) {
			out = append(out, l)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UndervaluePercent > out[j].UndervaluePercent
	})
	return out, nil
}

// GetByID returns storage.ErrNotFound for unknown ids.
func (q *DealQuery) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	return q.store.GetByID(ctx, id)
}

// make and model must match exactly (ignoring case); location is a substring match.
func matches(l *models.Listing, f models.DealFilter) bool {
	if l.UndervaluePercent < f.MinUndervaluePercent {
		return false
	}
	if f.Make != "" && !strings.EqualFold(l.Make, f.Make) {
		return false
	}
	if f.Model != "" && !strings.EqualFold(l.Model, f.Model) {
		return false
	}
	if f.Location != "" && !strings.Contains(strings.ToLower(l.Location), strings.ToLower(f.Location)) {
		return false
	}
	return true
}
