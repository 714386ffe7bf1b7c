package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-deal-finder/models"
	"car-deal-finder/scraper"
	"car-deal-finder/storage"
	"car-deal-finder/utils"
)

type fakeSource struct {
	rows []*models.RawRow
	err  error
	got  scraper.SearchParams
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(_ context.Context, p scraper.SearchParams) ([]*models.RawRow, error) {
	f.got = p
	return f.rows, f.err
}

type recordingWriter struct {
	source, city string
	rows         int
	err          error
}

func (w *recordingWriter) WriteRaw(source, city string, rows []*models.RawRow) error {
	w.source, w.city, w.rows = source, city, len(rows)
	return w.err
}

func (w *recordingWriter) Close() error { return nil }

func TestScrapeServiceRun(t *testing.T) {
	src := &fakeSource{rows: hondaRows("austin")}
	raw := &recordingWriter{err: errors.New("disk full")}
	svc := NewScrapeService(src, raw, newTestIngestor(storage.NewMemoryStore()), utils.NewNopLogger())

	p := scraper.SearchParams{City: "austin", Query: "honda civic", MaxResults: 3}
	res, err := svc.Run(context.Background(), p)
	require.NoError(t, err, "csv failure does not stop ingestion")

	assert.Equal(t, p, src.got)
	assert.Equal(t, "fake", raw.source)
	assert.Equal(t, "austin", raw.city)
	assert.Equal(t, 10, raw.rows, "every fetched row is audited")

	assert.Equal(t, "fake", res.Source)
	assert.Equal(t, "honda civic", res.Query)
	assert.Len(t, res.Inserted, 3, "max results caps ingestion")
	assert.Equal(t, "fake", svc.SourceName())
}

func TestScrapeServiceFetchError(t *testing.T) {
	src := &fakeSource{err: context.DeadlineExceeded}
	svc := NewScrapeService(src, nil, newTestIngestor(storage.NewMemoryStore()), utils.NewNopLogger())

	_, err := svc.Run(context.Background(), scraper.SearchParams{City: "austin"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
