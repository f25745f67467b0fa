package rows

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/basketdata/aisle-crawler/internal/pipeline"
)

// CSVSource iterates product rows from a CSV export with a product-code
// column and a store-links column.
type CSVSource struct {
	reader   *csv.Reader
	closer   io.Closer
	logger   *zap.Logger
	codeCol  int
	linksCol int
	yielded  int
	limit    int
}

// OpenCSV opens path and locates the columns from the header row.
// limit <= 0 means no limit.
func OpenCSV(path string, limit int, logger *zap.Logger) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read header: %w", err)
	}

	src := &CSVSource{
		reader:   r,
		closer:   f,
		logger:   logger,
		codeCol:  -1,
		linksCol: -1,
		limit:    limit,
	}
	for i, name := range header {
		lower := strings.ToLower(strings.TrimSpace(name))
		switch {
		case strings.Contains(lower, "product") && strings.Contains(lower, "code"):
			src.codeCol = i
		case strings.Contains(lower, "price") || strings.Contains(lower, "store"):
			if src.linksCol < 0 {
				src.linksCol = i
			}
		}
	}
	if src.codeCol < 0 || src.linksCol < 0 {
		_ = f.Close()
		return nil, fmt.Errorf("input is missing product code or store links column, header: %v", header)
	}
	return src, nil
}

// Next yields the next row with a parseable store-links cell, or io.EOF.
// Rows whose cell fails every parse attempt are logged and skipped.
func (s *CSVSource) Next(ctx context.Context) (pipeline.ProductRow, error) {
	for {
		if err := ctx.Err(); err != nil {
			return pipeline.ProductRow{}, err
		}
		if s.limit > 0 && s.yielded >= s.limit {
			return pipeline.ProductRow{}, io.EOF
		}

		record, err := s.reader.Read()
		if err == io.EOF {
			return pipeline.ProductRow{}, io.EOF
		}
		if err != nil {
			return pipeline.ProductRow{}, fmt.Errorf("read row: %w", err)
		}
		if s.codeCol >= len(record) || s.linksCol >= len(record) {
			continue
		}

		code := strings.TrimSpace(record[s.codeCol])
		links := ParseStoreLinks(record[s.linksCol])
		if code == "" || links == nil {
			if s.logger != nil {
				s.logger.Warn("skipping unparseable row", zap.String("product_code", code))
			}
			continue
		}

		s.yielded++
		return pipeline.ProductRow{ProductCode: code, StoreLinks: links}, nil
	}
}

// Close releases the underlying file.
func (s *CSVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

var _ pipeline.RowSource = (*CSVSource)(nil)
