package sink

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basketdata/aisle-crawler/internal/pipeline"
)

func newMockSink(t *testing.T) (*PostgresSink, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	s, err := NewPostgresSinkWithPool(mock, "product_aisles")
	require.NoError(t, err)
	return s, mock
}

func TestUpsertWritesEveryRecord(t *testing.T) {
	s, mock := newMockSink(t)
	defer mock.Close()

	records := []pipeline.SinkRecord{
		{ProductCode: "P1", Store: "tesco", StoreLink: "https://t/1", Aisle: "Fresh Food > Dairy > Milk"},
		{ProductCode: "P1", Store: "asda", StoreLink: "https://a/1", Aisle: pipeline.FailedAisle},
	}
	for _, r := range records {
		mock.ExpectExec("INSERT INTO product_aisles").
			WithArgs(r.ProductCode, r.Store, r.StoreLink, r.Aisle, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	require.NoError(t, s.Upsert(context.Background(), records))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSameKeyTwiceOnlyDiffersInModifiedDate(t *testing.T) {
	s, mock := newMockSink(t)
	defer mock.Close()

	base := time.Date(2026, 8, 5, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		mock.ExpectExec("INSERT INTO product_aisles").
			WithArgs("P1", "tesco", "https://t/1", "Dairy > Milk", base.Add(time.Duration(i+1)*time.Minute)).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	calls := 0
	s.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Minute)
	}

	record := []pipeline.SinkRecord{{ProductCode: "P1", Store: "tesco", StoreLink: "https://t/1", Aisle: "Dairy > Milk"}}
	require.NoError(t, s.Upsert(context.Background(), record))
	require.NoError(t, s.Upsert(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 2, calls, "each upsert stamps a fresh modified_date")
}

func TestUpsertRejectsRecordWithoutKey(t *testing.T) {
	s, mock := newMockSink(t)
	defer mock.Close()

	err := s.Upsert(context.Background(), []pipeline.SinkRecord{{Store: "tesco"}})
	assert.Error(t, err)
}

func TestNewPostgresSinkValidatesTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	_, err = NewPostgresSinkWithPool(mock, "bad table; drop")
	assert.Error(t, err)
}

func TestDSNFromEnv(t *testing.T) {
	assert.Equal(t, "", DSNFromEnv("", "", "", "", ""))
	assert.Equal(t,
		"postgres://u:p@db.example:5433/groceries",
		DSNFromEnv("db.example", "5433", "groceries", "u", "p"),
	)
	assert.Equal(t,
		"postgres://u:p@db.example:5432/groceries",
		DSNFromEnv("db.example", "", "groceries", "u", "p"),
	)
}
