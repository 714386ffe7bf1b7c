package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"car-deal-finder/models"
)

var csvHeader = []string{
	"source", "city", "title", "price_text", "neighborhood", "date_text", "url", "fetched_at",
}

// CSVWriter appends raw scrape rows to a CSV file. It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter opens path for appending, creating it and any missing parent
// directories. The header is written only when the file is empty.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("csv: open file %q: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: stat %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("csv: write header: %w", err)
		}
		w.Flush()
	}

	return &CSVWriter{file: f, writer: w}, nil
}

func (c *CSVWriter) WriteRaw(source, city string, rows []*models.RawRow) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range rows {
		if r == nil {
			continue
		}
		fetched := ""
		if !r.FetchedAt.IsZero() {
			fetched = r.FetchedAt.UTC().Format(time.RFC3339)
		}
		if err := c.writer.Write([]string{
			source, city, r.Title, r.PriceText, r.Neighborhood, r.DateText, r.URL, fetched,
		}); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}
