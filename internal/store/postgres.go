package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = int32(poolCfg.MaxConns)
		}
		if poolCfg.MinConns > 0 {
			minConns = int32(poolCfg.MinConns)
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS standardized_mappings (
	kind       TEXT NOT NULL,
	raw_input  TEXT NOT NULL,
	output     TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (kind, raw_input)
);

CREATE INDEX IF NOT EXISTS idx_mappings_kind ON standardized_mappings(kind);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetMappings(ctx context.Context, kind Kind, inputs []string) (map[string]string, error) {
	out := make(map[string]string, len(inputs))
	if len(inputs) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT raw_input, output FROM standardized_mappings WHERE kind = $1 AND raw_input = ANY($2)`,
		string(kind), inputs,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get mappings")
	}
	defer rows.Close()

	for rows.Next() {
		var raw, output string
		if err := rows.Scan(&raw, &output); err != nil {
			return nil, eris.Wrap(err, "postgres: scan mapping")
		}
		out[raw] = output
	}
	return out, eris.Wrap(rows.Err(), "postgres: mappings iterate")
}

func (s *PostgresStore) PutMappings(ctx context.Context, kind Kind, mappings map[string]string) error {
	if len(mappings) == 0 {
		return nil
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for raw, output := range mappings {
		batch.Queue(
			`INSERT INTO standardized_mappings (kind, raw_input, output, updated_at) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (kind, raw_input) DO UPDATE SET output = EXCLUDED.output, updated_at = EXCLUDED.updated_at`,
			string(kind), raw, output, now,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return eris.Wrap(err, "postgres: upsert mappings")
		}
	}
	return nil
}

func (s *PostgresStore) CountMappings(ctx context.Context, kind Kind) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM standardized_mappings WHERE kind = $1`,
		string(kind),
	).Scan(&n)
	return n, eris.Wrap(err, "postgres: count mappings")
}

func (s *PostgresStore) DeleteKind(ctx context.Context, kind Kind) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM standardized_mappings WHERE kind = $1`,
		string(kind),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete kind")
	}
	return int(tag.RowsAffected()), nil
}
