package audit

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/postgres"
)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// PostgresSink appends one row per call to an audit table.
type PostgresSink struct {
	client *postgres.Client
	table  string
	insert string
}

func NewPostgresSink(client *postgres.Client, table string) (*PostgresSink, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid audit table name %q", table)
	}
	return &PostgresSink{
		client: client,
		table:  table,
		insert: fmt.Sprintf(`INSERT INTO %s (method, path, status_code, failure, error, duration_us, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`, table),
	}, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

// EnsureSchema creates the audit table and its time index if missing.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id          BIGSERIAL PRIMARY KEY,
			method      TEXT        NOT NULL,
			path        TEXT        NOT NULL,
			status_code INTEGER,
			failure     TEXT,
			error       TEXT,
			duration_us BIGINT      NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL
		)`, s.table)); err != nil {
			return fmt.Errorf("creating %s: %w", s.table, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s_recorded_at_idx ON %s (recorded_at)`, s.table, s.table)); err != nil {
			return fmt.Errorf("indexing %s: %w", s.table, err)
		}
		return nil
	})
}

func (s *PostgresSink) Accept(ctx context.Context, rec CallRecord) error {
	var status sql.NullInt32
	if rec.OK() {
		status = sql.NullInt32{Int32: int32(rec.StatusCode), Valid: true}
	}
	_, err := s.client.DB.ExecContext(ctx, s.insert,
		rec.Method,
		rec.Path,
		status,
		sql.NullString{String: string(rec.Failure), Valid: !rec.OK()},
		sql.NullString{String: rec.Error, Valid: rec.Error != ""},
		rec.Duration.Microseconds(),
		rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("inserting audit record: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *PostgresSink) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.client.DB.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&n)
	return n, err
}
