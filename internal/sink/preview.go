// Package sink persists annotation records: a preview CSV for dry runs
// and a Postgres upsert store keyed by (product_code, store).
package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/basketdata/aisle-crawler/internal/pipeline"
)

// PreviewSink appends records to a CSV file with the preview schema:
// product code, Store, Store_link, aisle.
type PreviewSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewPreviewSink creates (or truncates) the preview file and writes the
// header.
func NewPreviewSink(path string) (*PreviewSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create preview file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"product code", "Store", "Store_link", "aisle"}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write preview header: %w", err)
	}
	return &PreviewSink{file: f, writer: w}, nil
}

// Upsert appends the records; the preview format has no conflict
// handling, every call appends.
func (s *PreviewSink) Upsert(_ context.Context, records []pipeline.SinkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if err := s.writer.Write([]string{r.ProductCode, r.Store, r.StoreLink, r.Aisle}); err != nil {
			return fmt.Errorf("write preview record: %w", err)
		}
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("flush preview: %w", err)
	}
	return nil
}

// Close flushes and closes the preview file.
func (s *PreviewSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		_ = s.file.Close()
		return fmt.Errorf("flush preview: %w", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close preview: %w", err)
	}
	return nil
}

var _ pipeline.Sink = (*PreviewSink)(nil)
