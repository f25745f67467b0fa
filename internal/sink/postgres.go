package sink

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/basketdata/aisle-crawler/internal/pipeline"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the connection pool behind the upsert store.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresSink upserts annotation records into the aisle table with
// primary key (product_code, store). Conflicts overwrite aisle,
// store_link, and modified_date.
type PostgresSink struct {
	pool  execCloser
	table string
	now   func() time.Time
}

// NewPostgresSink connects a pgx pool using the provided config.
func NewPostgresSink(ctx context.Context, cfg PostgresConfig) (*PostgresSink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "product_aisles"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresSink{pool: pool, table: table, now: time.Now}, nil
}

// NewPostgresSinkWithPool constructs a sink from an existing pool
// (primarily for testing with pgxmock).
func NewPostgresSinkWithPool(pool execCloser, table string) (*PostgresSink, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "product_aisles"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresSink{pool: pool, table: table, now: time.Now}, nil
}

// Upsert writes one row per record, overwriting on key conflict.
func (s *PostgresSink) Upsert(ctx context.Context, records []pipeline.SinkRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres sink is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (product_code, store, store_link, aisle, modified_date)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (product_code, store) DO UPDATE SET
	aisle = EXCLUDED.aisle,
	store_link = EXCLUDED.store_link,
	modified_date = EXCLUDED.modified_date`, s.table)

	for _, r := range records {
		if r.ProductCode == "" || r.Store == "" {
			return fmt.Errorf("record requires product code and store, got %+v", r)
		}
		args := []any{r.ProductCode, r.Store, r.StoreLink, r.Aisle, s.now()}
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", r.ProductCode, r.Store, err)
		}
	}
	return nil
}

// Close releases the pool.
func (s *PostgresSink) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

var _ pipeline.Sink = (*PostgresSink)(nil)

// DSNFromEnv assembles a postgres DSN from the PG* credential parts.
func DSNFromEnv(host, port, database, user, password string) string {
	if host == "" {
		return ""
	}
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, password, host, port, database)
}
