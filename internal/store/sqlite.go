package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// sqliteChunkSize bounds the number of placeholders per IN query. SQLite
// defaults to a 999 variable limit.
const sqliteChunkSize = 500

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS standardized_mappings (
	kind       TEXT NOT NULL,
	raw_input  TEXT NOT NULL,
	output     TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (kind, raw_input)
);

CREATE INDEX IF NOT EXISTS idx_mappings_kind ON standardized_mappings(kind);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetMappings(ctx context.Context, kind Kind, inputs []string) (map[string]string, error) {
	out := make(map[string]string, len(inputs))
	for start := 0; start < len(inputs); start += sqliteChunkSize {
		end := min(start+sqliteChunkSize, len(inputs))
		chunk := inputs[start:end]

		placeholders := strings.Repeat("?,", len(chunk))
		placeholders = placeholders[:len(placeholders)-1]
		args := make([]any, 0, len(chunk)+1)
		args = append(args, string(kind))
		for _, in := range chunk {
			args = append(args, in)
		}

		rows, err := s.db.QueryContext(ctx,
			`SELECT raw_input, output FROM standardized_mappings WHERE kind = ? AND raw_input IN (`+placeholders+`)`,
			args...,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: get mappings")
		}
		if err := scanMappings(rows, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanMappings(rows *sql.Rows, out map[string]string) error {
	defer rows.Close()
	for rows.Next() {
		var raw, output string
		if err := rows.Scan(&raw, &output); err != nil {
			return eris.Wrap(err, "sqlite: scan mapping")
		}
		out[raw] = output
	}
	return eris.Wrap(rows.Err(), "sqlite: mappings iterate")
}

func (s *SQLiteStore) PutMappings(ctx context.Context, kind Kind, mappings map[string]string) error {
	if len(mappings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO standardized_mappings (kind, raw_input, output, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (kind, raw_input) DO UPDATE SET output = excluded.output, updated_at = excluded.updated_at`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for raw, output := range mappings {
		if _, err := stmt.ExecContext(ctx, string(kind), raw, output, now); err != nil {
			return eris.Wrapf(err, "sqlite: upsert mapping %q", raw)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit mappings")
}

func (s *SQLiteStore) CountMappings(ctx context.Context, kind Kind) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM standardized_mappings WHERE kind = ?`,
		string(kind),
	).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count mappings")
}

func (s *SQLiteStore) DeleteKind(ctx context.Context, kind Kind) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM standardized_mappings WHERE kind = ?`,
		string(kind),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete kind")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}
