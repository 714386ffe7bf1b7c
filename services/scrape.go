package services

import (
	"context"
	"fmt"

	"car-deal-finder/models"
	"car-deal-finder/scraper"
	"car-deal-finder/storage"
	"car-deal-finder/utils"
)

// ScrapeService fetches rows from a Source, optionally records them in the
// raw CSV audit file and ingests them.
type ScrapeService struct {
	source   scraper.Source
	raw      storage.RawRowWriter
	ingestor *Ingestor
	logger   *utils.Logger
}

// NewScrapeService wires a scrape run. raw may be nil when CSV output is disabled.
func NewScrapeService(source scraper.Source, raw storage.RawRowWriter, ingestor *Ingestor, logger *utils.Logger) *ScrapeService {
	return &ScrapeService{source: source, raw: raw, ingestor: ingestor, logger: logger}
}

func (s *ScrapeService) SourceName() string { return s.source.Name() }

// Run fetches and ingests one search. A failed CSV write is logged and does
// not stop ingestion.
func (s *ScrapeService) Run(ctx context.Context, p scraper.SearchParams) (*models.IngestResult, error) {
	rows, err := s.source.Fetch(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("scrape %s/%s: %w", s.source.Name(), p.City, err)
	}
	s.logger.Info("[scrape] %s returned %d raw rows for %s", s.source.Name(), len(rows), p.City)

	if s.raw != nil {
		if err := s.raw.WriteRaw(s.source.Name(), p.City, rows); err != nil {
			s.logger.Error("[scrape] CSV write failed: %v", err)
		}
	}

	return s.ingestor.Ingest(ctx, IngestRequest{
		Source: s.source.Name(),
		City:   p.City,
		Query:  p.Query,
		Max:    p.MaxResults,
	}, rows)
}
