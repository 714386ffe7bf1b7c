package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-deal-finder/models"
	"car-deal-finder/storage"
)

func seededQuery(t *testing.T) *DealQuery {
	t.Helper()
	store := storage.NewMemoryStore()
	for _, l := range sampleListings() {
		_, err := store.UpsertIfAbsent(context.Background(), l)
		require.NoError(t, err)
	}
	return NewDealQuery(store)
}

func ids(ls []*models.Listing) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.ID)
	}
	return out
}

func TestFind(t *testing.T) {
	q := seededQuery(t)

	tests := []struct {
		name   string
		filter models.DealFilter
		want   []string
	}{
		{"default threshold", models.NewDealFilter(), []string{"b", "a", "c", "e", "f"}},
		{"zero threshold includes everything", models.DealFilter{}, []string{"b", "a", "c", "e", "f", "d"}},
		{"threshold above all", models.DealFilter{MinUndervaluePercent: 30}, []string{}},
		{"threshold is inclusive", models.DealFilter{MinUndervaluePercent: 25}, []string{"b"}},
		{"make ignores case", models.DealFilter{MinUndervaluePercent: 15, Make: "HONDA"}, []string{"b", "c"}},
		{"make is exact not substring", models.DealFilter{MinUndervaluePercent: 15, Make: "hon"}, []string{}},
		{"model exact", models.DealFilter{Model: "camry"}, []string{}},
		{"location substring", models.DealFilter{MinUndervaluePercent: 15, Location: "NORTH"}, []string{"a"}},
		{"location and make", models.DealFilter{Location: "dallas", Make: "kia"}, []string{"f"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := q.Find(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
			for _, l := range got {
				assert.GreaterOrEqual(t, l.UndervaluePercent, tt.filter.MinUndervaluePercent)
			}
		})
	}
}

func TestFindModelMatch(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	for _, l := range []*models.Listing{
		{ID: "1", URL: "u1", Make: "Honda", Model: "Civic LX", UndervaluePercent: 20},
		{ID: "2", URL: "u2", Make: "Honda", Model: "Civic", UndervaluePercent: 20},
	} {
		_, err := store.UpsertIfAbsent(ctx, l)
		require.NoError(t, err)
	}

	got, err := NewDealQuery(store).Find(ctx, models.DealFilter{Model: "civic"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(got))
}

func TestGetByID(t *testing.T) {
	q := seededQuery(t)

	l, err := q.GetByID(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, "2016 Honda Accord", l.Title)

	_, err = q.GetByID(context.Background(), "zzz")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
