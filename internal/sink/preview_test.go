package sink

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basketdata/aisle-crawler/internal/pipeline"
)

func TestPreviewSinkWritesHeaderAndRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preview.csv")
	s, err := NewPreviewSink(path)
	require.NoError(t, err)

	records := []pipeline.SinkRecord{
		{ProductCode: "P1", Store: "tesco", StoreLink: "https://t/1", Aisle: "Fresh Food > Dairy > Milk"},
		{ProductCode: "P1", Store: "asda", StoreLink: "https://a/1", Aisle: pipeline.FailedAisle},
	}
	require.NoError(t, s.Upsert(context.Background(), records))
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	lines, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"product code", "Store", "Store_link", "aisle"}, lines[0])
	assert.Equal(t, "FAILED", lines[2][3])
}
