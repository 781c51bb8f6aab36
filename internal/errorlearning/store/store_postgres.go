package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"lucy/internal/errorlearning/models"
	"lucy/pkg/platform/sentinel"
)

// Schema creates the fingerprint table. It is safe to run on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS error_records (
	error_id         TEXT PRIMARY KEY,
	error_type       TEXT NOT NULL,
	what_happened    TEXT NOT NULL,
	why_happened     TEXT NOT NULL DEFAULT '',
	how_to_fix       TEXT NOT NULL DEFAULT '',
	how_to_prevent   TEXT NOT NULL DEFAULT '',
	context          JSONB NOT NULL DEFAULT '{}'::jsonb,
	severity         TEXT NOT NULL,
	occurrence_count INTEGER NOT NULL DEFAULT 1 CHECK (occurrence_count >= 1),
	first_occurred   TIMESTAMPTZ NOT NULL,
	last_occurred    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS error_records_severity_idx ON error_records (severity);
CREATE INDEX IF NOT EXISTS error_records_count_idx ON error_records (occurrence_count DESC);
`

const recordColumns = `error_id, error_type, what_happened, why_happened, how_to_fix, how_to_prevent,
	context, severity, occurrence_count, first_occurred, last_occurred`

// PostgresStore persists fingerprints in PostgreSQL. Concurrent observations
// of the same fingerprint are serialized by the row conflict, so no count is
// lost.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies Schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate error_records: %w", err)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, rec models.Record) (models.Record, error) {
	ctxJSON, err := marshalContext(rec.Context)
	if err != nil {
		return models.Record{}, err
	}
	query := `
		INSERT INTO error_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $9)
		ON CONFLICT (error_id) DO UPDATE SET
			occurrence_count = error_records.occurrence_count + 1,
			last_occurred = GREATEST(error_records.last_occurred, EXCLUDED.last_occurred)
		RETURNING ` + recordColumns
	row := s.db.QueryRowContext(ctx, query,
		rec.ErrorID, rec.ErrorType, rec.WhatHappened, rec.WhyHappened, rec.HowToFix, rec.HowToPrevent,
		ctxJSON, string(rec.Severity), rec.LastOccurred.UTC(),
	)
	out, err := scanRecord(row)
	if err != nil {
		return models.Record{}, fmt.Errorf("upsert error %s: %w", rec.ErrorID, err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (models.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM error_records WHERE error_id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Record{}, fmt.Errorf("get error %s: %w", id, err)
	}
	return rec, nil
}

func (s *PostgresStore) ListByCount(ctx context.Context) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM error_records ORDER BY occurrence_count DESC, error_id`)
	if err != nil {
		return nil, fmt.Errorf("list errors: %w", err)
	}
	return collect(rows)
}

func (s *PostgresStore) ListBySeverity(ctx context.Context, severities ...models.Severity) ([]models.Record, error) {
	names := make([]string, len(severities))
	for i, sev := range severities {
		names[i] = string(sev)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM error_records WHERE severity = ANY($1) ORDER BY last_occurred DESC, error_id`,
		pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("list errors by severity: %w", err)
	}
	return collect(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (models.Record, error) {
	var (
		rec      models.Record
		ctxJSON  []byte
		severity string
	)
	err := row.Scan(&rec.ErrorID, &rec.ErrorType, &rec.WhatHappened, &rec.WhyHappened, &rec.HowToFix, &rec.HowToPrevent,
		&ctxJSON, &severity, &rec.OccurrenceCount, &rec.FirstOccurred, &rec.LastOccurred)
	if err != nil {
		return models.Record{}, err
	}
	rec.Severity = models.Severity(severity)
	if len(ctxJSON) > 0 {
		if err := json.Unmarshal(ctxJSON, &rec.Context); err != nil {
			return models.Record{}, fmt.Errorf("decode context: %w", err)
		}
	}
	return rec, nil
}

func collect(rows *sql.Rows) ([]models.Record, error) {
	defer rows.Close()
	out := []models.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func marshalContext(ctx map[string]any) ([]byte, error) {
	if ctx == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(ctx)
	if err != nil {
		return nil, fmt.Errorf("encode context: %w", err)
	}
	return b, nil
}
