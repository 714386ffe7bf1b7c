package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"car-deal-finder/models"
	"car-deal-finder/storage"
	"car-deal-finder/utils"
)

// batchUpserter is implemented by stores that can write a whole batch in
// one round trip (the pgx store).
type batchUpserter interface {
	UpsertBatch(ctx context.Context, listings []*models.Listing) ([]bool, error)
}

// Ingestor runs one batch of raw rows through extraction, normalization,
// valuation and the store.
type Ingestor struct {
	store      storage.ListingStore
	extractor  *Extractor
	normalizer *Normalizer
	logger     *utils.Logger
	now        func() time.Time
}

// NewIngestor wires the pipeline around store. region is the location used
// for rows that carry none.
func NewIngestor(store storage.ListingStore, region string, logger *utils.Logger) *Ingestor {
	return &Ingestor{
		store:      store,
		extractor:  NewExtractor(logger),
		normalizer: NewNormalizer(region),
		logger:     logger,
		now:        time.Now,
	}
}

// IngestRequest describes where a batch of rows came from.
type IngestRequest struct {
	Source string
	City   string
	Query  string
	// Max caps the number of rows extracted; zero or negative means no cap.
	Max int
}

// Ingest processes rows sequentially. Row-level problems are counted in the
// result; only store failures abort the call.
func (i *Ingestor) Ingest(ctx context.Context, req IngestRequest, rows []*models.RawRow) (*models.IngestResult, error) {
	createdAt := i.now().UTC()

	result := &models.IngestResult{
		Source:    req.Source,
		City:      req.City,
		Query:     req.Query,
		CreatedAt: createdAt,
		Inserted:  make([]*models.Listing, 0),
		Failures:  make([]models.RowFailure, 0),
	}

	extracted, dropped := i.extractor.extract(rows, ExtractOptions{City: req.City, Max: req.Max, Now: createdAt})
	result.Skipped = dropped

	ready := make([]*models.Listing, 0, len(extracted))
	for _, ext := range extracted {
		l, err := i.normalizer.Normalize(ext, req.Source, createdAt)
		if errors.Is(err, ErrMissingPrice) {
			i.logger.Info("[ingest] Skipping %s: no usable price", ext.URL)
			result.Skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: normalize %q: %w", ext.URL, err)
		}

		if err := ApplyValuation(l); err != nil {
			i.logger.Warn("[ingest] Valuation failed for %s: %v", l.URL, err)
			result.Failures = append(result.Failures, models.RowFailure{URL: l.URL, Title: l.Title, Error: err.Error()})
			continue
		}
		ready = append(ready, l)
	}

	if err := i.persist(ctx, ready, result); err != nil {
		return nil, err
	}

	i.logger.Info("[ingest] %s/%s: %d inserted, %d duplicates, %d skipped, %d failed",
		req.Source, req.City, len(result.Inserted), result.Duplicates, result.Skipped, len(result.Failures))
	return result, nil
}

func (i *Ingestor) persist(ctx context.Context, ready []*models.Listing, result *models.IngestResult) error {
	if b, ok := i.store.(batchUpserter); ok {
		inserted, err := b.UpsertBatch(ctx, ready)
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		for idx, l := range ready {
			if inserted[idx] {
				result.Inserted = append(result.Inserted, l)
			} else {
				result.Duplicates++
			}
		}
		return nil
	}

	for _, l := range ready {
		inserted, err := i.store.UpsertIfAbsent(ctx, l)
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		if inserted {
			result.Inserted = append(result.Inserted, l)
		} else {
			result.Duplicates++
		}
	}
	return nil
}
