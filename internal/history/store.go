// Package history persists generation runs in PostgreSQL.
//
// The store is optional: the server falls back to core.MemoryRecorder when no
// DATABASE_URL is configured. Store satisfies core.Recorder and core.Pinger.
package history

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/flexgen/internal/core"
)

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

const schema = `
CREATE TABLE IF NOT EXISTS generation_runs (
	id                 UUID PRIMARY KEY,
	status             TEXT NOT NULL,
	input_name         TEXT NOT NULL DEFAULT '',
	archive_name       TEXT NOT NULL DEFAULT '',
	reference_uploaded BOOLEAN NOT NULL DEFAULT FALSE,
	xml                BOOLEAN NOT NULL DEFAULT FALSE,
	rows               INTEGER NOT NULL DEFAULT 0,
	columns            INTEGER NOT NULL DEFAULT 0,
	configs            INTEGER NOT NULL DEFAULT 0,
	stage              TEXT,
	error_code         TEXT,
	error              TEXT,
	started_at         TIMESTAMPTZ NOT NULL,
	duration_ms        BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS generation_runs_started_at_idx ON generation_runs (started_at DESC);
`

const insertRun = `
INSERT INTO generation_runs (
	id, status, input_name, archive_name, reference_uploaded, xml,
	rows, columns, configs, stage, error_code, error, started_at, duration_ms
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

const selectRecent = `
SELECT id, status, input_name, archive_name, reference_uploaded, xml,
	rows, columns, configs, stage, error_code, error, started_at, duration_ms
FROM generation_runs
ORDER BY started_at DESC
LIMIT $1`

// Store records runs in the generation_runs table.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, cfg PoolConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Migrate creates the run table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate generation_runs: %w", err)
	}
	return nil
}

// RecordRun inserts one run.
func (s *Store) RecordRun(ctx context.Context, run core.Run) error {
	id, err := parseUUID(run.ID)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, insertRun,
		id,
		string(run.Status),
		run.InputName,
		run.ArchiveName,
		run.Reference,
		run.XML,
		int32(run.Rows),
		int32(run.Columns),
		int32(run.Configs),
		optionalText(run.Stage),
		optionalText(run.ErrorCode),
		optionalText(run.Error),
		pgtype.Timestamptz{Time: run.StartedAt, Valid: true},
		run.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]core.Run, error) {
	rows, err := s.pool.Query(ctx, selectRecent, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	runs, err := pgx.CollectRows(rows, scanRun)
	if err != nil {
		return nil, fmt.Errorf("scan runs: %w", err)
	}
	return runs, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

func scanRun(row pgx.CollectableRow) (core.Run, error) {
	var (
		run                     core.Run
		id                      pgtype.UUID
		status                  string
		rowCount, cols, configs int32
		stage, code, msg        pgtype.Text
		startedAt               pgtype.Timestamptz
	)

	err := row.Scan(
		&id, &status, &run.InputName, &run.ArchiveName, &run.Reference, &run.XML,
		&rowCount, &cols, &configs, &stage, &code, &msg, &startedAt, &run.DurationMs,
	)
	if err != nil {
		return core.Run{}, err
	}

	run.ID = formatUUID(id)
	run.Status = core.RunStatus(status)
	run.Rows, run.Columns, run.Configs = int(rowCount), int(cols), int(configs)
	run.Stage, run.ErrorCode, run.Error = stage.String, code.String, msg.String
	run.StartedAt = startedAt.Time.UTC()
	return run, nil
}

func parseUUID(s string) (pgtype.UUID, error) {
	var id pgtype.UUID
	if err := id.Scan(s); err != nil {
		return id, fmt.Errorf("invalid run id %q: %w", s, err)
	}
	return id, nil
}

func formatUUID(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	v, err := id.Value()
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func optionalText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

// DatabaseName returns the database named in a connection URL, for logging.
func DatabaseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
