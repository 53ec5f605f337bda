package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertRun records the start of a pipeline execution.
func (s *Store) InsertRun(ctx context.Context, id string, kind Kind, startedAt time.Time) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (id, kind, started_at) VALUES (?, ?, ?)`,
		id,
		string(kind),
		startedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records completion time and the structured summary.
func (s *Store) FinishRun(ctx context.Context, id string, finishedAt time.Time, summaryJSON string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET finished_at = ?, summary_json = ? WHERE id = ?`,
		finishedAt.UTC().Format(time.RFC3339Nano),
		nullableString(summaryJSON),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// LatestRun returns the most recently started run for a kind, or nil when
// none exist.
func (s *Store) LatestRun(ctx context.Context, kind Kind) (*Run, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, kind, started_at, finished_at, summary_json FROM runs
         WHERE kind = ? ORDER BY started_at DESC LIMIT 1`,
		string(kind),
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id          string
		kind        string
		startedRaw  string
		finishedRaw sql.NullString
		summary     sql.NullString
	)
	if err := scanner.Scan(&id, &kind, &startedRaw, &finishedRaw, &summary); err != nil {
		return nil, err
	}
	run := &Run{
		ID:          id,
		Kind:        Kind(kind),
		SummaryJSON: summary.String,
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}
