package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-deal-finder/models"
	"car-deal-finder/storage"
	"car-deal-finder/utils"
)

var batchTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// hondaRows builds the canonical ten-row batch: prices 8000..12500 in steps
// of 500, titles "2015 Honda Civic LX", "2016 ...", and so on.
func hondaRows(city string) []*models.RawRow {
	rows := make([]*models.RawRow, 0, 10)
	for i := 0; i < 10; i++ {
		rows = append(rows, &models.RawRow{
			Title:     fmt.Sprintf("201%d Honda Civic LX", 5+i),
			PriceText: fmt.Sprintf("$%d", 8000+500*i),
			URL:       fmt.Sprintf("https://example.com/%s/honda-civic/%d", city, i),
		})
	}
	return rows
}

func newTestIngestor(store storage.ListingStore) *Ingestor {
	ing := NewIngestor(store, "unknown", utils.NewNopLogger())
	ing.now = func() time.Time { return batchTime }
	return ing
}

func TestIngestHondaScenario(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	ing := newTestIngestor(store)
	req := IngestRequest{Source: "stubbed_craigslist", City: "austin", Query: "honda civic", Max: 10}

	res, err := ing.Ingest(ctx, req, hondaRows("austin"))
	require.NoError(t, err)
	require.Len(t, res.Inserted, 10)
	assert.Equal(t, 0, res.Duplicates)
	assert.Equal(t, 0, res.Skipped)
	assert.Empty(t, res.Failures)

	first := res.Inserted[0]
	assert.Equal(t, 8000, first.ListedPrice)
	assert.Equal(t, 9600, first.PredictedPrice)
	assert.InDelta(t, 16.67, first.UndervaluePercent, 0.01)
	assert.Equal(t, "Honda", first.Make)
	require.NotNil(t, first.Year)
	assert.Equal(t, 2015, *first.Year)
	assert.Nil(t, res.Inserted[5].Year, "five digit first token carries no year")

	seen := make(map[string]bool)
	for _, l := range res.Inserted {
		assert.Equal(t, batchTime, l.CreatedAt, "batch shares created_at")
		assert.False(t, seen[l.ID])
		seen[l.ID] = true
	}

	again, err := ing.Ingest(ctx, req, hondaRows("austin"))
	require.NoError(t, err)
	assert.Empty(t, again.Inserted)
	assert.Equal(t, 10, again.Duplicates)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	deals, err := NewDealQuery(store).Find(ctx, models.NewDealFilter())
	require.NoError(t, err)
	require.Len(t, deals, 10)
	for i, l := range deals {
		assert.Equal(t, res.Inserted[i].ID, l.ID, "ties keep insertion order")
	}

	_, err = NewDealQuery(store).GetByID(ctx, "never-issued")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIngestRowLevelOutcomes(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	ing := newTestIngestor(store)

	rows := []*models.RawRow{
		{Title: "2014 Toyota Camry", PriceText: "$7,900", URL: "https://a/1", DateText: "2027-01-01T00:00:00Z"},
		{Title: "", PriceText: "$5", URL: "https://a/2"},
		{Title: "Free junker", PriceText: "$0", URL: "https://a/3"},
		{Title: "Ford Focus", PriceText: "call me", URL: "https://a/4"},
		{Title: "2019 Kia Soul", PriceText: "$9,000", URL: "https://a/5", Neighborhood: "(east)"},
	}

	res, err := ing.Ingest(ctx, IngestRequest{Source: "craigslist", City: "austin"}, rows)
	require.NoError(t, err)

	require.Len(t, res.Inserted, 2)
	assert.Equal(t, 2, res.Skipped, "missing title and missing price")
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "https://a/3", res.Failures[0].URL)
	assert.Contains(t, res.Failures[0].Error, "valuation undefined")

	assert.Equal(t, batchTime, res.Inserted[0].PostedAt, "future posted_at clamped")
	assert.Equal(t, "austin (east)", res.Inserted[1].Location)
}

func TestIngestEmptyBatch(t *testing.T) {
	res, err := newTestIngestor(storage.NewMemoryStore()).Ingest(context.Background(),
		IngestRequest{Source: "craigslist", City: "austin"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, res.Inserted)
	assert.NotNil(t, res.Failures)
	assert.Equal(t, 0, res.Skipped)
}

func TestIngestConcurrentBatchesOnSQLite(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "deals.db"))
	require.NoError(t, err)
	defer store.Close()

	ing := newTestIngestor(store)
	var (
		mu       sync.Mutex
		inserted int
	)

	pool := utils.NewWorkerPool(4, 0)
	for i := 0; i < 4; i++ {
		pool.Submit(func() {
			res, err := ing.Ingest(ctx, IngestRequest{Source: "stubbed_craigslist", City: "austin"}, hondaRows("austin"))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inserted += len(res.Inserted)
			mu.Unlock()
		})
	}
	pool.Wait()

	assert.Equal(t, 10, inserted, "each url is inserted by exactly one batch")
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

type failingStore struct{ storage.ListingStore }

func (failingStore) UpsertIfAbsent(context.Context, *models.Listing) (bool, error) {
	return false, errors.New("connection refused")
}

func TestIngestStoreFailureIsFatal(t *testing.T) {
	ing := newTestIngestor(failingStore{storage.NewMemoryStore()})
	_, err := ing.Ingest(context.Background(), IngestRequest{Source: "s", City: "austin"}, hondaRows("austin"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

type batchStore struct {
	*storage.MemoryStore
	calls int
}

func (b *batchStore) UpsertBatch(ctx context.Context, ls []*models.Listing) ([]bool, error) {
	b.calls++
	out := make([]bool, len(ls))
	for i, l := range ls {
		ok, err := b.UpsertIfAbsent(ctx, l)
		if err != nil {
			return out, err
		}
		out[i] = ok
	}
	return out, nil
}

func TestIngestUsesBatchWhenAvailable(t *testing.T) {
	store := &batchStore{MemoryStore: storage.NewMemoryStore()}
	ing := newTestIngestor(store)

	res, err := ing.Ingest(context.Background(), IngestRequest{Source: "s", City: "austin"}, hondaRows("austin"))
	require.NoError(t, err)
	assert.Len(t, res.Inserted, 10)
	assert.Equal(t, 1, store.calls)
}
