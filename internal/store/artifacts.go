package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ward/internal/period"
)

// Outcome describes the result of an idempotent artifact insert.
type Outcome string

const (
	OutcomeCreated       Outcome = "created"
	OutcomeAlreadyExists Outcome = "already_exists"
)

// InsertArtifactIfAbsent inserts an artifact unless its slug is already
// taken. A uniqueness violation is a benign outcome, never an error; the
// existing artifact is returned alongside OutcomeAlreadyExists.
func (s *Store) InsertArtifactIfAbsent(ctx context.Context, a Artifact) (Outcome, *Artifact, error) {
	if a.Slug == "" {
		return "", nil, errors.New("artifact slug required")
	}
	if a.Status == "" {
		a.Status = StatusPublished
	}
	if _, ok := statusSet[a.Status]; !ok {
		return "", nil, fmt.Errorf("unknown artifact status %q", a.Status)
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO artifacts (
            neighborhood_id, period_key, slug, kind, title, content, status,
            metadata_json, scheduled_for, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.NeighborhoodID,
		a.PeriodKey.String(),
		a.Slug,
		string(a.Kind),
		nullableString(a.Title),
		a.Content,
		a.Status,
		nullableString(a.MetadataJSON),
		nullableTime(a.ScheduledFor),
		timestamp,
		timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			existing, getErr := s.GetArtifactBySlug(ctx, a.Slug)
			if getErr != nil {
				return "", nil, fmt.Errorf("load existing artifact: %w", getErr)
			}
			return OutcomeAlreadyExists, existing, nil
		}
		return "", nil, fmt.Errorf("insert artifact: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return "", nil, fmt.Errorf("last insert id: %w", err)
	}
	created, err := s.GetArtifactByID(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return OutcomeCreated, created, nil
}

// GetArtifactByID fetches an artifact by identifier. Returns nil when
// absent.
func (s *Store) GetArtifactByID(ctx context.Context, id int64) (*Artifact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE id = ?`, id)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	return a, nil
}

// GetArtifactBySlug fetches an artifact by its idempotency slug.
func (s *Store) GetArtifactBySlug(ctx context.Context, slug string) (*Artifact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE slug = ?`, slug)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact by slug: %w", err)
	}
	return a, nil
}

// ListArtifacts returns artifacts filtered by status set (or all artifacts
// when no status is provided), newest first.
func (s *Store) ListArtifacts(ctx context.Context, statuses ...Status) ([]*Artifact, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + artifactColumns + ` FROM artifacts`
	orderClause := ` ORDER BY created_at DESC`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []*Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SatisfiedPeriodKeys reports which of the candidate period keys already
// have an artifact of the given kind, regardless of editorial status. Keys
// embed the neighborhood-local date, so this check runs on the same clock
// as the scheduling window.
func (s *Store) SatisfiedPeriodKeys(ctx context.Context, kind Kind, keys []period.Key) (map[period.Key]bool, error) {
	satisfied := make(map[period.Key]bool, len(keys))
	if len(keys) == 0 {
		return satisfied, nil
	}
	placeholders := makePlaceholders(len(keys))
	args := make([]any, 0, len(keys)+1)
	args = append(args, string(kind))
	for _, key := range keys {
		args = append(args, key.String())
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT DISTINCT period_key FROM artifacts WHERE kind = ? AND period_key IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query satisfied periods: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		satisfied[period.Key(key)] = true
	}
	return satisfied, rows.Err()
}

// ArtifactStats returns a count of artifacts grouped by status.
func (s *Store) ArtifactStats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM artifacts GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("artifact stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

const artifactColumns = "id, neighborhood_id, period_key, slug, kind, title, content, status, metadata_json, scheduled_for, created_at, updated_at"

func scanArtifact(scanner interface{ Scan(dest ...any) error }) (*Artifact, error) {
	var (
		id             int64
		neighborhoodID string
		periodKey      string
		slug           string
		kind           string
		title          sql.NullString
		content        string
		statusStr      string
		metadata       sql.NullString
		scheduledRaw   sql.NullString
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&neighborhoodID,
		&periodKey,
		&slug,
		&kind,
		&title,
		&content,
		&statusStr,
		&metadata,
		&scheduledRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	a := &Artifact{
		ID:             id,
		NeighborhoodID: neighborhoodID,
		PeriodKey:      period.Key(periodKey),
		Slug:           slug,
		Kind:           Kind(kind),
		Title:          title.String,
		Content:        content,
		Status:         Status(statusStr),
		MetadataJSON:   metadata.String,
	}
	if scheduledRaw.Valid {
		if scheduled, err := parseTimeString(scheduledRaw.String); err == nil {
			a.ScheduledFor = &scheduled
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		a.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		a.UpdatedAt = updated
	}
	return a, nil
}
