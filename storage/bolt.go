package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"car-deal-finder/models"
)

var (
	bucketByURL = []byte("listings_by_url")
	bucketIDs   = []byte("listing_ids")
	bucketOrder = []byte("listing_order")
)

// BoltStore keeps listings in an embedded BoltDB file.
//
// Layout: listings_by_url maps url to the JSON listing, listing_ids maps id
// to url, and listing_order maps a big-endian sequence number to url so a
// cursor walk yields insertion order. Bolt allows one writer at a time, so
// the existence check and the three puts in UpsertIfAbsent are atomic.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the database at path and ensures the
// buckets exist.
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("bolt: create data dir: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %q: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketByURL, bucketIDs, bucketOrder} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) UpsertIfAbsent(_ context.Context, l *models.Listing) (bool, error) {
	inserted := false

	err := s.db.Update(func(tx *bolt.Tx) error {
		byURL := tx.Bucket(bucketByURL)
		if byURL.Get([]byte(l.URL)) != nil {
			return nil
		}

		data, err := json.Marshal(l)
		if err != nil {
			return err
		}

		order := tx.Bucket(bucketOrder)
		seq, err := order.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)

		if err := byURL.Put([]byte(l.URL), data); err != nil {
			return err
		}
		if err := tx.Bucket(bucketIDs).Put([]byte(l.ID), []byte(l.URL)); err != nil {
			return err
		}
		if err := order.Put(key, []byte(l.URL)); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("bolt: insert %q: %w", l.URL, err)
	}
	return inserted, nil
}

func (s *BoltStore) All(_ context.Context) ([]*models.Listing, error) {
	listings := make([]*models.Listing, 0)

	err := s.db.View(func(tx *bolt.Tx) error {
		byURL := tx.Bucket(bucketByURL)
		return tx.Bucket(bucketOrder).ForEach(func(_, url []byte) error {
			var l models.Listing
			if err := json.Unmarshal(byURL.Get(url), &l); err != nil {
				return fmt.Errorf("decode %q: %w", url, err)
			}
			listings = append(listings, &l)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: fetch all: %w", err)
	}
	return listings, nil
}

func (s *BoltStore) GetByID(_ context.Context, id string) (*models.Listing, error) {
	var l models.Listing

	err := s.db.View(func(tx *bolt.Tx) error {
		url := tx.Bucket(bucketIDs).Get([]byte(id))
		if url == nil {
			return ErrNotFound
		}
		return json.Unmarshal(tx.Bucket(bucketByURL).Get(url), &l)
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *BoltStore) Count(_ context.Context) (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketByURL).Stats().KeyN
		return nil
	})
	return n, err
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
