// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jabarkle/quorum-triage/internal/triage"
)

//go:embed schema.sql
var schema string

// Store persists triage runs and reports in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// PutSummary upserts a run summary. Items are stored as JSONB so the tagged
// success/failure structure round-trips losslessly.
func (s *Store) PutSummary(ctx context.Context, sum *triage.Summary) error {
	items, err := json.Marshal(sum.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	var completedAt *time.Time
	if !sum.CompletedAt.IsZero() {
		completedAt = &sum.CompletedAt
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO triage_runs
			(run_id, status, source, items, scored, failed, error, created_at, completed_at, duration_s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status,
			source = EXCLUDED.source,
			items = EXCLUDED.items,
			scored = EXCLUDED.scored,
			failed = EXCLUDED.failed,
			error = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at,
			duration_s = EXCLUDED.duration_s`,
		sum.RunID, string(sum.Status), sum.Source, items,
		sum.Scored, sum.Failed, sum.Error,
		sum.CreatedAt, completedAt, sum.Duration,
	)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}

// GetSummary retrieves a run summary by ID.
func (s *Store) GetSummary(ctx context.Context, runID string) (*triage.Summary, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT run_id, status, source, items, scored, failed, error, created_at, completed_at, duration_s
		FROM triage_runs WHERE run_id = $1`, runID)

	sum, err := scanSummary(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select run: %w", err)
	}
	return sum, true, nil
}

// ListSummaries returns up to limit summaries, most recent first.
func (s *Store) ListSummaries(ctx context.Context, limit int) ([]*triage.Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, status, source, items, scored, failed, error, created_at, completed_at, duration_s
		FROM triage_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer rows.Close()

	var out []*triage.Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// PutReport upserts a single triage report.
func (s *Store) PutReport(ctx context.Context, r *triage.Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO triage_reports
			(id, run_id, solicitation_id, score, recommendation, report, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			score = EXCLUDED.score,
			recommendation = EXCLUDED.recommendation,
			report = EXCLUDED.report`,
		r.ID, r.RunID, r.SolicitationID, r.Score, string(r.Recommendation), body, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert report: %w", err)
	}
	return nil
}

// GetReport retrieves a report by ID.
func (s *Store) GetReport(ctx context.Context, id string) (*triage.Report, bool, error) {
	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT report FROM triage_reports WHERE id = $1`, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select report: %w", err)
	}

	var r triage.Report
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, false, fmt.Errorf("decode report: %w", err)
	}
	return &r, true, nil
}

func scanSummary(row pgx.Row) (*triage.Summary, error) {
	var (
		sum         triage.Summary
		status      string
		items       []byte
		completedAt *time.Time
	)
	if err := row.Scan(
		&sum.RunID, &status, &sum.Source, &items,
		&sum.Scored, &sum.Failed, &sum.Error,
		&sum.CreatedAt, &completedAt, &sum.Duration,
	); err != nil {
		return nil, err
	}
	sum.Status = triage.RunStatus(status)
	if completedAt != nil {
		sum.CompletedAt = *completedAt
	}
	if err := json.Unmarshal(items, &sum.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return &sum, nil
}
