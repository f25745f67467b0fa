package app

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/basketdata/aisle-crawler/internal/dispatch"
	"github.com/basketdata/aisle-crawler/internal/extract"
	"github.com/basketdata/aisle-crawler/internal/pipeline"
	publishmemory "github.com/basketdata/aisle-crawler/internal/publish/memory"
)

// sliceSource yields a fixed set of rows.
type sliceSource struct {
	mu   sync.Mutex
	rows []pipeline.ProductRow
}

func (s *sliceSource) Next(_ context.Context) (pipeline.ProductRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rows) == 0 {
		return pipeline.ProductRow{}, io.EOF
	}
	row := s.rows[0]
	s.rows = s.rows[1:]
	return row, nil
}

// captureSink records upserted records.
type captureSink struct {
	mu      sync.Mutex
	records []pipeline.SinkRecord
}

func (s *captureSink) Upsert(_ context.Context, records []pipeline.SinkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return nil
}

func (s *captureSink) Close() error { return nil }

func (s *captureSink) all() []pipeline.SinkRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pipeline.SinkRecord(nil), s.records...)
}

// okFetcher always serves a JSON-LD page.
type okFetcher struct{}

const runnerPage = `<script type="application/ld+json">
{"@type":"BreadcrumbList","itemListElement":[
	{"position":1,"name":"Fresh Food"},{"position":2,"name":"Dairy"},{"position":3,"name":"Milk"}
]}</script>`

func (okFetcher) Fetch(_ context.Context, _, _ string) pipeline.FetchResult {
	return pipeline.FetchResult{
		Body:       []byte(runnerPage),
		StatusHint: pipeline.FetchOK,
		Method:     "http",
	}
}

func TestRunnerProcessesAllRows(t *testing.T) {
	d := dispatch.New(okFetcher{}, nil, extract.NewRegistry(), zap.NewNop())
	out := &captureSink{}
	pub := publishmemory.New()
	r := NewRunner(d, out, pub, "aisle-outcomes", 2, zap.NewNop())

	source := &sliceSource{rows: []pipeline.ProductRow{
		{ProductCode: "P1", StoreLinks: map[string]string{"tesco": "https://t/1"}},
		{ProductCode: "P2", StoreLinks: map[string]string{"asda": "https://a/1"}},
		{ProductCode: "P3", StoreLinks: map[string]string{"ocado": "https://o/1"}},
	}}

	summary, err := r.Run(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Rows)
	assert.Equal(t, 3, summary.Successes)
	assert.Len(t, out.all(), 3, "one record per store link per row")
	assert.Len(t, pub.Messages(), 3)
}

func TestRunnerHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := dispatch.New(okFetcher{}, nil, extract.NewRegistry(), zap.NewNop())
	out := &captureSink{}
	r := NewRunner(d, out, nil, "", 1, zap.NewNop())

	source := &sliceSource{rows: []pipeline.ProductRow{
		{ProductCode: "P1", StoreLinks: map[string]string{"tesco": "https://t/1"}},
	}}
	summary, err := r.Run(ctx, source)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Rows)
}
