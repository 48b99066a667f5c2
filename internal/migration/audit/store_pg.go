package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qiniu/rulemigrator/internal/config"
	"github.com/qiniu/rulemigrator/internal/migration/service"
)

const schema = `
CREATE TABLE IF NOT EXISTS migration_runs (
	id          UUID PRIMARY KEY,
	started_at  TIMESTAMPTZ NOT NULL,
	analyzer    TEXT NOT NULL,
	prefix      TEXT NOT NULL,
	pairs       INT NOT NULL,
	summary     JSONB NOT NULL,
	report      JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS migration_results (
	run_id         UUID NOT NULL REFERENCES migration_runs(id) ON DELETE CASCADE,
	alert_name     TEXT NOT NULL,
	severity       TEXT NOT NULL,
	status         TEXT NOT NULL,
	triage_action  TEXT NOT NULL,
	primary_metric TEXT NOT NULL,
	agg_mode       TEXT NOT NULL,
	agg_reason     TEXT NOT NULL,
	notes          JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS migration_results_run_idx ON migration_results(run_id);
`

// PgStore is a PostgreSQL-backed Store. The whole report is kept as JSONB for retrieval and
// each result is flattened into migration_results for auditing heuristic decisions.
type PgStore struct {
	Pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore { return &PgStore{Pool: pool} }

// OpenPgStore connects using the database config and ensures the schema exists.
func OpenPgStore(ctx context.Context, c *config.DatabaseConfig) (*PgStore, error) {
	pool, err := pgxpool.New(ctx, c.ConnString())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := NewPgStore(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PgStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PgStore) Close() { s.Pool.Close() }

func (s *PgStore) SaveRun(ctx context.Context, report *service.Report) error {
	summary, err := json.Marshal(report.Summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertRun = `
	INSERT INTO migration_runs(id, started_at, analyzer, prefix, pairs, summary, report)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		pairs = EXCLUDED.pairs,
		summary = EXCLUDED.summary,
		report = EXCLUDED.report
	`
	if _, err := tx.Exec(ctx, insertRun, report.ID, report.StartedAt, report.Analyzer, report.Prefix, report.Pairs, summary, body); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM migration_results WHERE run_id = $1`, report.ID); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}

	batch := &pgx.Batch{}
	rows, err := resultRows(report)
	if err != nil {
		return err
	}
	for _, args := range rows {
		batch.Queue(insertResult, args...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert results: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const insertResult = `
INSERT INTO migration_results(run_id, alert_name, severity, status, triage_action, primary_metric, agg_mode, agg_reason, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

// resultRows flattens each result into the insertResult argument list.
func resultRows(report *service.Report) ([][]any, error) {
	rows := make([][]any, 0, len(report.Results))
	for _, r := range report.Results {
		notes := r.Notes
		if notes == nil {
			notes = []string{}
		}
		notesJSON, err := json.Marshal(notes)
		if err != nil {
			return nil, fmt.Errorf("encode notes for %s: %w", r.AlertName, err)
		}
		rows = append(rows, []any{report.ID, r.AlertName, r.Severity, r.Status, r.TriageAction, r.PrimaryMetric, r.AggMode, r.AggReason, notesJSON})
	}
	return rows, nil
}

func (s *PgStore) GetRun(ctx context.Context, id string) (*service.Report, error) {
	var body []byte
	err := s.Pool.QueryRow(ctx, `SELECT report FROM migration_runs WHERE id = $1`, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	var report service.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &report, nil
}
