package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-deal-finder/models"
	"car-deal-finder/utils"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleListing(i int) *models.Listing {
	return &models.Listing{
		ID:                fmt.Sprintf("id-%02d", i),
		Source:            "stubbed_craigslist",
		URL:               fmt.Sprintf("https://example.com/austin/honda-civic/%d", i),
		Title:             "2015 Honda Civic LX",
		Description:       "2015 Honda Civic LX",
		ListedPrice:       8000 + 500*i,
		PredictedPrice:    (8000 + 500*i) * 6 / 5,
		UndervaluePercent: 16.67,
		Year:              models.IntPtr(2015),
		Make:              "honda",
		Model:             "civic",
		Location:          "austin",
		CreatedAt:         baseTime,
		PostedAt:          baseTime.Add(-time.Hour),
	}
}

// runStoreContract exercises the behavior every ListingStore must share.
func runStoreContract(t *testing.T, open func(t *testing.T) ListingStore) {
	ctx := context.Background()

	t.Run("insert then duplicate", func(t *testing.T) {
		s := open(t)
		l := sampleListing(0)

		inserted, err := s.UpsertIfAbsent(ctx, l)
		require.NoError(t, err)
		assert.True(t, inserted)

		dup := sampleListing(0)
		dup.ID = "other-id"
		dup.ListedPrice = 1
		inserted, err = s.UpsertIfAbsent(ctx, dup)
		require.NoError(t, err)
		assert.False(t, inserted, "same URL must not be written twice")

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got, err := s.GetByID(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, 8000, got.ListedPrice, "first write wins")

		_, err = s.GetByID(ctx, "other-id")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("insertion order and round trip", func(t *testing.T) {
		s := open(t)
		for i := 0; i < 5; i++ {
			_, err := s.UpsertIfAbsent(ctx, sampleListing(i))
			require.NoError(t, err)
		}
		noYear := sampleListing(5)
		noYear.Year = nil
		noYear.Mileage = models.IntPtr(120000)
		_, err := s.UpsertIfAbsent(ctx, noYear)
		require.NoError(t, err)

		all, err := s.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 6)
		for i, l := range all {
			assert.Equal(t, fmt.Sprintf("id-%02d", i), l.ID)
		}

		first := all[0]
		require.NotNil(t, first.Year)
		assert.Equal(t, 2015, *first.Year)
		assert.Nil(t, first.Mileage)
		assert.Equal(t, 9600, first.PredictedPrice)
		assert.InDelta(t, 16.67, first.UndervaluePercent, 1e-9)
		assert.True(t, first.CreatedAt.Equal(baseTime), "created_at %v", first.CreatedAt)
		assert.True(t, first.PostedAt.Equal(baseTime.Add(-time.Hour)), "posted_at %v", first.PostedAt)

		last := all[5]
		assert.Nil(t, last.Year)
		require.NotNil(t, last.Mileage)
		assert.Equal(t, 120000, *last.Mileage)
	})

	t.Run("empty store", func(t *testing.T) {
		s := open(t)
		all, err := s.All(ctx)
		require.NoError(t, err)
		assert.NotNil(t, all)
		assert.Empty(t, all)

		_, err = s.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("concurrent inserts of the same url", func(t *testing.T) {
		s := open(t)
		var wins int64

		pool := utils.NewWorkerPool(8, 0)
		for i := 0; i < 40; i++ {
			i := i
			pool.Submit(func() {
				l := sampleListing(7)
				l.ID = fmt.Sprintf("racer-%d", i)
				ok, err := s.UpsertIfAbsent(ctx, l)
				assert.NoError(t, err)
				if ok {
					atomic.AddInt64(&wins, 1)
				}
			})
		}
		pool.Wait()

		assert.Equal(t, int64(1), wins)
		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) ListingStore {
		return NewMemoryStore()
	})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.UpsertIfAbsent(ctx, sampleListing(0))
	require.NoError(t, err)

	got, err := s.GetByID(ctx, "id-00")
	require.NoError(t, err)
	*got.Year = 1999
	got.Title = "mutated"

	again, err := s.GetByID(ctx, "id-00")
	require.NoError(t, err)
	assert.Equal(t, 2015, *again.Year)
	assert.Equal(t, "2015 Honda Civic LX", again.Title)
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) ListingStore {
		s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "deals.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "deals.db")

	s, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	_, err = s.UpsertIfAbsent(ctx, sampleListing(1))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	inserted, err := s.UpsertIfAbsent(ctx, sampleListing(1))
	require.NoError(t, err)
	assert.False(t, inserted)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBoltStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) ListingStore {
		s, err := NewBoltStore(filepath.Join(t.TempDir(), "deals.bolt"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
